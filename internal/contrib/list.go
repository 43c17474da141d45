package contrib

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/thiagokokada/contribgit/internal/git"
)

// Contribution is the metadata of one branch, derived from its head commit.
type Contribution struct {
	Branch string `json:"branch"`
	Title  string `json:"title"`
	// SignoffAuthor is nil when the head commit carries no sign-off.
	SignoffAuthor *string       `json:"signoffAuthor"`
	Timestamp     time.Time     `json:"timestamp"`
	Head          plumbing.Hash `json:"-"`
}

type commitMeta struct {
	message git.Message
	when    time.Time
}

// InvalidateListing drops the cached branch listing. Ref changes made by the
// manager invalidate it themselves; the ref watcher covers everything else.
func (m *Manager) InvalidateListing() {
	m.listMu.Lock()
	defer m.listMu.Unlock()
	m.listing = nil
	m.listingOK = false
	m.listingGen++
}

// ListBranches reports every branch, newest head commit first. Branches
// with equal timestamps are ordered by name.
func (m *Manager) ListBranches() ([]Contribution, error) {
	m.listMu.Lock()
	if m.listingOK {
		out := cloneListing(m.listing)
		m.listMu.Unlock()
		return out, nil
	}
	gen := m.listingGen
	m.listMu.Unlock()

	var list []Contribution
	err := m.withStore(func(store *git.Store) error {
		branches, err := store.Branches()
		if err != nil {
			return err
		}
		list = make([]Contribution, 0, len(branches))
		for _, b := range branches {
			meta, err := m.commitMeta(store, b.Head)
			if err != nil {
				return err
			}
			list = append(list, Contribution{
				Branch:        b.Name,
				Title:         meta.message.Title,
				SignoffAuthor: meta.message.Signoff,
				Timestamp:     meta.when,
				Head:          b.Head,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(list, func(a, b Contribution) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.Branch, b.Branch)
	})

	m.listMu.Lock()
	if m.listingGen == gen {
		m.listing = list
		m.listingOK = true
	}
	m.listMu.Unlock()
	return cloneListing(list), nil
}

func (m *Manager) commitMeta(store *git.Store, id plumbing.Hash) (commitMeta, error) {
	if meta, ok := m.meta.Get(id); ok {
		return meta, nil
	}
	c, err := store.ReadCommit(id)
	if err != nil {
		return commitMeta{}, err
	}
	meta := commitMeta{message: git.ParseMessage(c.Message), when: c.Committer.When}
	m.meta.Add(id, meta)
	return meta, nil
}

func cloneListing(list []Contribution) []Contribution {
	out := slices.Clone(list)
	for i := range out {
		if s := out[i].SignoffAuthor; s != nil {
			v := strings.Clone(*s)
			out[i].SignoffAuthor = &v
		}
	}
	return out
}
