// Package submission lays knowledge and skill contributions out as taxonomy
// files and commits them through a contribution manager.
package submission

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/thiagokokada/contribgit/internal/contrib"
	"github.com/thiagokokada/contribgit/internal/git"
)

type Kind string

const (
	Knowledge Kind = "knowledge"
	Skill     Kind = "skill"
)

const (
	QnAFile         = "qna.yaml"
	AttributionFile = "attribution.txt"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Knowledge, Skill:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown contribution kind %q", s)
}

// Root is the top-level taxonomy directory holding contributions of kind k.
func (k Kind) Root() string {
	if k == Skill {
		return "compositional_skills"
	}
	return "knowledge"
}

// BranchName returns the branch for a contribution started at t.
func BranchName(k Kind, t time.Time) string {
	return fmt.Sprintf("%s-contribution-%d", k, t.UnixMilli())
}

type Attribution struct {
	TitleOfWork      string `yaml:"title_of_work" json:"title_of_work"`
	LinkToWork       string `yaml:"link_to_work,omitempty" json:"link_to_work,omitempty"`
	Revision         string `yaml:"revision,omitempty" json:"revision,omitempty"`
	LicenseOfTheWork string `yaml:"license_of_the_work" json:"license_of_the_work"`
	CreatorNames     string `yaml:"creator_names" json:"creator_names"`
}

var attributionFields = []struct {
	label string
	get   func(*Attribution) *string
	kinds []Kind
}{
	{"Title of work", func(a *Attribution) *string { return &a.TitleOfWork }, []Kind{Knowledge, Skill}},
	{"Link to work", func(a *Attribution) *string { return &a.LinkToWork }, []Kind{Knowledge}},
	{"Revision", func(a *Attribution) *string { return &a.Revision }, []Kind{Knowledge}},
	{"License of the work", func(a *Attribution) *string { return &a.LicenseOfTheWork }, []Kind{Knowledge, Skill}},
	{"Creator names", func(a *Attribution) *string { return &a.CreatorNames }, []Kind{Knowledge, Skill}},
}

// Text renders attribution.txt. Skills omit the link and revision lines.
func (a Attribution) Text(k Kind) string {
	var b strings.Builder
	for _, f := range attributionFields {
		if !hasKind(f.kinds, k) {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", f.label, *f.get(&a))
	}
	return b.String()
}

func hasKind(kinds []Kind, k Kind) bool {
	for _, kk := range kinds {
		if kk == k {
			return true
		}
	}
	return false
}

// ParseAttribution reads the "Label: value" lines written by Text. Unknown
// lines are ignored.
func ParseAttribution(text string) Attribution {
	var a Attribution
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		label, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		for _, f := range attributionFields {
			if f.label == strings.TrimSpace(label) {
				*f.get(&a) = strings.TrimSpace(value)
			}
		}
	}
	return a
}

// Submission is one knowledge or skill contribution.
type Submission struct {
	Kind Kind
	// Path is the taxonomy directory below the kind root, e.g. "science/physics".
	Path string
	// OldPath is the directory the contribution was previously filed under.
	OldPath     string
	QnA         []byte
	Attribution Attribution
	Summary     string
}

func (s Submission) dir(path string) string {
	return s.Kind.Root() + "/" + strings.Trim(path, "/")
}

// Moved reports whether an update files the contribution under a new path.
func (s Submission) Moved() bool {
	return s.OldPath != "" && strings.Trim(s.OldPath, "/") != strings.Trim(s.Path, "/")
}

// Files returns the files to write and the paths to remove.
func (s Submission) Files() ([]contrib.File, []string, error) {
	if _, err := ParseKind(string(s.Kind)); err != nil {
		return nil, nil, err
	}
	if strings.Trim(s.Path, "/") == "" {
		return nil, nil, errors.New("submission path is required")
	}
	qna, err := NormalizeYAML(s.QnA)
	if err != nil {
		return nil, nil, err
	}
	dir := s.dir(s.Path)
	files := []contrib.File{
		{Path: dir + "/" + QnAFile, Content: qna},
		{Path: dir + "/" + AttributionFile, Content: []byte(s.Attribution.Text(s.Kind))},
	}
	for _, f := range files {
		if err := git.ValidatePath(f.Path); err != nil {
			return nil, nil, err
		}
	}
	var removals []string
	if s.Moved() {
		old := s.dir(s.OldPath)
		removals = []string{old + "/" + QnAFile, old + "/" + AttributionFile}
	}
	return files, removals, nil
}

// NormalizeYAML re-encodes a YAML mapping document with two space indentation.
// Comments and key order are kept.
func NormalizeYAML(data []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse qna.yaml: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("parse qna.yaml: top level must be a mapping")
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("encode qna.yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode qna.yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// Result names the branch and commit a submission landed on.
type Result struct {
	Branch string
	Commit plumbing.Hash
}

// Submit commits s. With an empty branch a new contribution branch is
// created; otherwise the existing branch is updated, amending its commit
// when the contribution moved so the old files leave no trace.
func Submit(m *contrib.Manager, s Submission, branch string, author git.Author, now time.Time) (Result, error) {
	if author.Name == "" || author.Email == "" {
		return Result{}, errors.New("author name and email are required")
	}
	files, removals, err := s.Files()
	if err != nil {
		return Result{}, err
	}
	created := false
	if branch == "" {
		branch = BranchName(s.Kind, now)
		if _, err := m.CreateBranch(branch); err != nil {
			return Result{}, err
		}
		created = true
	}
	id, err := commit(m, branch, files, removals, author, s.Summary, s.Moved())
	if err != nil {
		if created {
			// A new contribution that failed to commit leaves no branch behind.
			err = errors.Join(err, m.DeleteBranch(branch))
		}
		return Result{}, err
	}
	return Result{Branch: branch, Commit: id}, nil
}

func commit(m *contrib.Manager, branch string, files []contrib.File, removals []string, author git.Author, summary string, amend bool) (plumbing.Hash, error) {
	wt, err := m.Checkout(branch)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	for _, path := range removals {
		if err := m.RemoveFile(wt, path); err != nil {
			return plumbing.ZeroHash, err
		}
	}
	return m.StageAndCommit(wt, files, author, summary, amend)
}

// Load reconstructs the submission carried by a contribution branch from
// the files it changed.
func Load(m *contrib.Manager, branch string) (Submission, error) {
	changes, err := m.Changes(branch)
	if err != nil {
		return Submission{}, err
	}
	for _, ch := range changes {
		if ch.Status == git.StatusDeleted || !strings.HasSuffix(ch.Path, "/"+QnAFile) {
			continue
		}
		dir := strings.TrimSuffix(ch.Path, "/"+QnAFile)
		root, rest, ok := strings.Cut(dir, "/")
		if !ok {
			continue
		}
		var kind Kind
		switch root {
		case Knowledge.Root():
			kind = Knowledge
		case Skill.Root():
			kind = Skill
		default:
			continue
		}
		qna, err := m.ReadFile(branch, ch.Path)
		if err != nil {
			return Submission{}, err
		}
		s := Submission{Kind: kind, Path: rest, OldPath: rest, QnA: qna}
		if attr, err := m.ReadFile(branch, dir+"/"+AttributionFile); err == nil {
			s.Attribution = ParseAttribution(string(attr))
		} else if !errors.Is(err, git.ErrNotFound) {
			return Submission{}, err
		}
		list, err := m.ListBranches()
		if err != nil {
			return Submission{}, err
		}
		for _, c := range list {
			if c.Branch == branch {
				s.Summary = c.Title
			}
		}
		return s, nil
	}
	return Submission{}, &git.NotFoundError{Kind: "submission", Name: branch}
}
