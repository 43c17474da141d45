package git

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

type pathStatus struct {
	Path   string
	Status ChangeStatus
}

func statuses(changes []FileChange) []pathStatus {
	out := make([]pathStatus, 0, len(changes))
	for _, ch := range changes {
		out = append(out, pathStatus{Path: ch.Path, Status: ch.Status})
	}
	return out
}

func TestDiffCommits(t *testing.T) {
	t.Parallel()

	s, root := seededStore(t)
	base := commitOn(t, s, root,
		Put("knowledge/a/qna.yaml", []byte("a")),
		Put("knowledge/a/attribution.txt", []byte("attr")),
		Put("skills/b/qna.yaml", []byte("b")),
		Put("x", []byte("file")),
		Put("gone/deep/one.txt", []byte("1")),
		Put("gone/two.txt", []byte("2")),
	)
	next := commitOn(t, s, base,
		Put("knowledge/a/qna.yaml", []byte("a2")),
		Put("knowledge/c/qna.yaml", []byte("c")),
		Remove("x"),
		Put("x/y", []byte("nested")),
		Remove("gone"),
	)

	tests := []struct {
		name string
		a, b plumbing.Hash
		want []pathStatus
	}{
		{name: "same commit", a: next, b: next, want: []pathStatus{}},
		{
			name: "forward",
			a:    base,
			b:    next,
			want: []pathStatus{
				{"gone/deep/one.txt", StatusDeleted},
				{"gone/two.txt", StatusDeleted},
				{"knowledge/a/qna.yaml", StatusModified},
				{"knowledge/c/qna.yaml", StatusAdded},
				{"x", StatusDeleted},
				{"x/y", StatusAdded},
			},
		},
		{
			name: "from empty",
			a:    plumbing.ZeroHash,
			b:    base,
			want: []pathStatus{
				{"gone/deep/one.txt", StatusAdded},
				{"gone/two.txt", StatusAdded},
				{"knowledge/a/attribution.txt", StatusAdded},
				{"knowledge/a/qna.yaml", StatusAdded},
				{"skills/b/qna.yaml", StatusAdded},
				{"x", StatusAdded},
			},
		},
		{name: "root to root", a: root, b: root, want: []pathStatus{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.DiffCommits(tt.a, tt.b)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, statuses(got), cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("DiffCommits mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDiffIsSymmetric(t *testing.T) {
	t.Parallel()

	s, root := seededStore(t)
	a := commitOn(t, s, root, Put("p/one", []byte("1")), Put("q", []byte("q")))
	b := commitOn(t, s, a, Remove("p/one"), Put("p/two", []byte("2")), Put("q", []byte("q2")))

	forward, err := s.DiffCommits(a, b)
	require.NoError(t, err)
	backward, err := s.DiffCommits(b, a)
	require.NoError(t, err)

	flip := map[ChangeStatus]ChangeStatus{StatusAdded: StatusDeleted, StatusDeleted: StatusAdded, StatusModified: StatusModified}
	want := make([]pathStatus, 0, len(forward))
	for _, ch := range forward {
		want = append(want, pathStatus{Path: ch.Path, Status: flip[ch.Status]})
	}
	if diff := cmp.Diff(want, statuses(backward)); diff != "" {
		t.Fatalf("reverse diff mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffCarriesBlobIDs(t *testing.T) {
	t.Parallel()

	s, root := seededStore(t)
	a := commitOn(t, s, root, Put("f", []byte("old")))
	b := commitOn(t, s, a, Put("f", []byte("new")))

	changes, err := s.DiffCommits(a, b)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	oldID, err := s.WriteBlob([]byte("old"))
	require.NoError(t, err)
	newID, err := s.WriteBlob([]byte("new"))
	require.NoError(t, err)
	require.Equal(t, oldID, changes[0].From)
	require.Equal(t, newID, changes[0].To)
}

func TestDiffMissingCommit(t *testing.T) {
	t.Parallel()

	s, root := seededStore(t)
	_, err := s.DiffCommits(root, plumbing.NewHash("2222222222222222222222222222222222222222"))
	require.ErrorIs(t, err, ErrNotFound)
}
