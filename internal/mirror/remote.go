package mirror

import (
	"context"
	"fmt"

	"github.com/go-git/go-billy/v5/osfs"
	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/go-git/go-git/v5/storage/memory"
)

// Remote is the network side of a mirror.
type Remote interface {
	// Clone writes a bare clone of branch from url into dir, which exists and is empty.
	Clone(ctx context.Context, url, branch, dir string) error
	// Head returns the commit branch points at on the remote.
	Head(ctx context.Context, url, branch string) (plumbing.Hash, error)
}

// GoGitRemote talks to remotes with go-git's transports.
type GoGitRemote struct {
	Auth transport.AuthMethod
}

func (r GoGitRemote) Clone(ctx context.Context, url, branch, dir string) error {
	st := filesystem.NewStorage(osfs.New(dir), cache.NewObjectLRUDefault())
	_, err := gitlib.CloneContext(ctx, st, nil, &gitlib.CloneOptions{
		URL:           url,
		Auth:          r.Auth,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Tags:          gitlib.NoTags,
	})
	if err != nil {
		return fmt.Errorf("clone %s: %w", url, err)
	}
	return nil
}

func (r GoGitRemote) Head(ctx context.Context, url, branch string) (plumbing.Hash, error) {
	remote := gitlib.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{url},
	})
	refs, err := remote.ListContext(ctx, &gitlib.ListOptions{Auth: r.Auth})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("list %s: %w", url, err)
	}
	want := plumbing.NewBranchReferenceName(branch)
	for _, ref := range refs {
		if ref.Name() == want {
			return ref.Hash(), nil
		}
	}
	return plumbing.ZeroHash, fmt.Errorf("list %s: branch %q not advertised", url, branch)
}
