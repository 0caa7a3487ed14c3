package source

import (
	"context"
	"net/url"
	"os"

	"github.com/joulupukki/joulupukki-dispatcher/pkg/api"
	"github.com/otiai10/copy"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/src-d/go-git.v4"
	"gopkg.in/src-d/go-git.v4/plumbing"
)

var (
	// ErrCloneFailed is returned if the git transport fails to clone the repository
	ErrCloneFailed = errors.New("cloning error")

	// ErrBranchNotFound is returned if neither the branch nor origin/<branch> exists in the cloned repository
	ErrBranchNotFound = errors.New("branch not found")

	// ErrBadCommit is returned if the requested commit can't be resolved
	ErrBadCommit = errors.New("bad commit")

	// ErrSourceMissing is returned if a local source path is not an existing directory
	ErrSourceMissing = errors.New("source folder does not exist")

	// ErrUnsupportedSourceType is returned for source types other than git and local
	ErrUnsupportedSourceType = errors.New("source type not supported")
)

// GitCloneFunc clones url into dir
type GitCloneFunc func(ctx context.Context, dir, url string) (*git.Repository, error)

// Client fetches the sources of a build into its source folder
//
//go:generate mockgen -package=source -destination ./mock.go -source=client.go
type Client interface {
	GetSources(ctx context.Context, build *api.Build, sourceDir string) (err error)
}

// NewClient returns a new source.Client
func NewClient(gitClone GitCloneFunc) Client {
	if gitClone == nil {
		gitClone = plainClone
	}

	return &client{
		gitClone: gitClone,
	}
}

type client struct {
	gitClone GitCloneFunc
}

func (c *client) GetSources(ctx context.Context, build *api.Build, sourceDir string) (err error) {
	switch build.SourceType {
	case api.SourceTypeGit:
		return c.getGitSources(ctx, build, sourceDir)
	case api.SourceTypeLocal:
		return c.getLocalSources(ctx, build, sourceDir)
	}

	return errors.Wrapf(ErrUnsupportedSourceType, "source type %q", build.SourceType)
}

func (c *client) getGitSources(ctx context.Context, build *api.Build, sourceDir string) (err error) {

	log.Info().Str("buildID", build.ID).Msg("Cloning")

	sourceURL, err := RewriteURL(build.SourceURL)
	if err != nil {
		return
	}

	repo, err := c.gitClone(ctx, sourceDir, sourceURL)
	if err != nil {
		return errors.Wrapf(ErrCloneFailed, "%v", err)
	}

	head, err := repo.Head()
	if err != nil {
		return errors.Wrapf(ErrCloneFailed, "reading HEAD: %v", err)
	}
	checkedOutBranch := head.Name().Short()
	target := head.Hash()

	if build.Branch != "" {
		target, err = resolveBranch(repo, build.Branch)
		if err != nil {
			return
		}
	}

	if build.Commit != "" {
		hash, resolveErr := repo.ResolveRevision(plumbing.Revision(build.Commit))
		if resolveErr != nil {
			return errors.Wrapf(ErrBadCommit, "%v - %v", build.Commit, resolveErr)
		}
		if _, commitErr := repo.CommitObject(*hash); commitErr != nil {
			return errors.Wrapf(ErrBadCommit, "%v - %v", build.Commit, commitErr)
		}
		target = *hash
	}

	// detach HEAD so the reset doesn't move the default branch along
	if build.Branch != "" || build.Commit != "" {
		err = repo.Storer.SetReference(plumbing.NewHashReference(plumbing.HEAD, target))
		if err != nil {
			return
		}
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return
	}
	err = worktree.Reset(&git.ResetOptions{Commit: target, Mode: git.HardReset})
	if err != nil {
		return errors.Wrapf(err, "resetting working tree to %v", target)
	}

	commit, err := repo.CommitObject(target)
	if err != nil {
		return errors.Wrapf(ErrBadCommit, "%v - %v", target, err)
	}

	if build.Commit == "" {
		build.Commit = commit.Hash.String()
	}
	build.CommitterName = commit.Committer.Name
	build.CommitterEmail = commit.Committer.Email
	build.Message = commit.Message
	if build.Branch == "" {
		build.Branch = checkedOutBranch
	}

	log.Info().Str("buildID", build.ID).Str("commit", build.Commit).Msg("Cloned")

	return nil
}

// resolveBranch looks for a reference named branch or origin/branch and returns the commit it points to
func resolveBranch(repo *git.Repository, branch string) (hash plumbing.Hash, err error) {
	refs, err := repo.References()
	if err != nil {
		return
	}

	found := false
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		if name != branch && name != "origin/"+branch {
			return nil
		}
		resolved, resolveErr := commitForReference(repo, ref)
		if resolveErr != nil {
			return resolveErr
		}
		hash = resolved
		found = true
		return nil
	})
	if err != nil {
		return
	}
	if !found {
		return hash, errors.Wrapf(ErrBranchNotFound, "branch %v", branch)
	}

	return hash, nil
}

// commitForReference follows symbolic references and peels annotated tags
func commitForReference(repo *git.Repository, ref *plumbing.Reference) (plumbing.Hash, error) {
	if ref.Type() == plumbing.SymbolicReference {
		resolved, err := repo.Reference(ref.Name(), true)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		ref = resolved
	}

	if tag, err := repo.TagObject(ref.Hash()); err == nil {
		commit, err := tag.Commit()
		if err != nil {
			return plumbing.ZeroHash, err
		}
		return commit.Hash, nil
	}

	return ref.Hash(), nil
}

func (c *client) getLocalSources(ctx context.Context, build *api.Build, sourceDir string) (err error) {
	u, err := url.Parse(build.SourceURL)
	if err != nil {
		return errors.Wrapf(err, "parsing source url %v", build.SourceURL)
	}

	info, err := os.Stat(u.Path)
	if err != nil || !info.IsDir() {
		return errors.Wrapf(ErrSourceMissing, "source folder %v", u.Path)
	}

	log.Info().Str("buildID", build.ID).Msgf("Copying %v", u.Path)

	return copy.Copy(u.Path, sourceDir, copy.Options{
		OnSymlink: func(string) copy.SymlinkAction {
			return copy.Shallow
		},
	})
}

func plainClone(ctx context.Context, dir, url string) (*git.Repository, error) {
	return git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL: url,
	})
}
