package fetch

import (
	"context"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/driftwatch/driftwatch/models"
)

// GitRefFetcher resolves a ref on any git remote to its hash, ls-remote
// style: no clone, no hosting API, so it works against every server go-git
// can reach.
type GitRefFetcher struct {
	target models.Target
}

// NewGitRef creates a GitRefFetcher.
func NewGitRef(target models.Target) *GitRefFetcher {
	return &GitRefFetcher{target: target}
}

func (g *GitRefFetcher) Kind() string     { return models.KindGitRef }
func (g *GitRefFetcher) Describe() string { return g.target.Describe() }

func (g *GitRefFetcher) Fetch(ctx context.Context) (models.Observation, error) {
	remote := gogit.NewRemote(memory.NewStorage(), &gitcfg.RemoteConfig{
		Name: "origin",
		URLs: []string{g.target.URL},
	})
	refs, err := remote.ListContext(ctx, &gogit.ListOptions{})
	if err != nil {
		return models.Observation{}, fmt.Errorf("listing refs of %s: %w", g.target.URL, err)
	}

	ref, err := resolveRef(refs, g.target.Ref)
	if err != nil {
		return models.Observation{}, fmt.Errorf("%s: %w", g.target.URL, err)
	}
	return models.Observation{
		Value: ref.Hash().String(),
		Note:  "ref " + ref.Name().String(),
	}, nil
}

// resolveRef picks the advertised reference matching want: the full ref
// name first, then refs/heads/<want>, then refs/tags/<want>. An empty want
// means HEAD. Symbolic refs are followed within the advertised set.
func resolveRef(refs []*plumbing.Reference, want string) (*plumbing.Reference, error) {
	byName := make(map[plumbing.ReferenceName]*plumbing.Reference, len(refs))
	for _, ref := range refs {
		byName[ref.Name()] = ref
	}

	candidates := []plumbing.ReferenceName{plumbing.HEAD}
	if want != "" {
		candidates = []plumbing.ReferenceName{
			plumbing.ReferenceName(want),
			plumbing.NewBranchReferenceName(want),
			plumbing.NewTagReferenceName(want),
		}
	}

	for _, name := range candidates {
		ref, ok := byName[name]
		if !ok {
			continue
		}
		for hops := 0; ref.Type() == plumbing.SymbolicReference; hops++ {
			if hops > 4 {
				return nil, fmt.Errorf("ref %s: symbolic chain too deep", name)
			}
			next, ok := byName[ref.Target()]
			if !ok {
				return nil, fmt.Errorf("ref %s: symbolic target %s not advertised", name, ref.Target())
			}
			ref = next
		}
		return ref, nil
	}

	if want == "" {
		return nil, fmt.Errorf("remote did not advertise HEAD")
	}
	return nil, fmt.Errorf("ref %q not found on remote", want)
}
