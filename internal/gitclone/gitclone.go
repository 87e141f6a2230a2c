// Package gitclone shallow-clones GitHub repositories, for conversions
// submitted by URL instead of zip upload.
package gitclone

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"path/filepath"
	"strings"
)

// runGit is injectable in tests.
var runGit = func(ctx context.Context, gitBin string, args ...string) error {
	cmd := exec.CommandContext(ctx, gitBin, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", gitBin, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

type Cloner struct {
	gitBin string
}

func NewCloner(gitBin string) *Cloner {
	if gitBin == "" {
		gitBin = "git"
	}
	return &Cloner{gitBin: gitBin}
}

// Clone shallow-clones a GitHub repository into destRoot/<repo> and returns
// the checkout path. Only github.com URLs are accepted.
func (c *Cloner) Clone(ctx context.Context, repoURL, branch, destRoot string) (string, error) {
	cloneURL, repoName, err := normalizeRepoURL(repoURL)
	if err != nil {
		return "", err
	}

	checkout := filepath.Join(destRoot, repoName)
	args := []string{"clone", "--depth", "1"}
	if b := strings.TrimSpace(branch); b != "" {
		args = append(args, "--branch", b, "--single-branch")
	}
	args = append(args, cloneURL, checkout)

	if err := runGit(ctx, c.gitBin, args...); err != nil {
		return "", fmt.Errorf("clone %s: %w", cloneURL, err)
	}
	return checkout, nil
}

func normalizeRepoURL(raw string) (cloneURL, repoName string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", fmt.Errorf("repo url required")
	}

	if strings.HasPrefix(raw, "git@github.com:") {
		repoPath := strings.TrimSuffix(strings.TrimPrefix(raw, "git@github.com:"), ".git")
		owner, repo, ok := splitOwnerRepo(repoPath)
		if !ok {
			return "", "", fmt.Errorf("invalid github repo url %q", raw)
		}
		return fmt.Sprintf("git@github.com:%s/%s.git", owner, repo), repo, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid repo url: %w", err)
	}
	if !strings.EqualFold(strings.TrimSpace(u.Host), "github.com") {
		return "", "", fmt.Errorf("only github.com repositories are supported")
	}
	owner, repo, ok := splitOwnerRepo(strings.TrimSuffix(u.Path, ".git"))
	if !ok {
		return "", "", fmt.Errorf("invalid github repo url %q", raw)
	}
	return fmt.Sprintf("https://github.com/%s/%s.git", owner, repo), repo, nil
}

func splitOwnerRepo(repoPath string) (owner, repo string, ok bool) {
	parts := strings.Split(strings.Trim(repoPath, "/"), "/")
	if len(parts) < 2 {
		return "", "", false
	}
	owner = strings.TrimSpace(parts[0])
	repo = strings.TrimSpace(parts[1])
	if owner == "" || repo == "" {
		return "", "", false
	}
	return owner, repo, true
}
