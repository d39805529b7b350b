package builtin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/turboshovel/hooks/cmd/hooks-app/cli/event"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/gate"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/paths"
)

// GitStatus reports uncommitted changes in the event's repository as
// context. It never blocks; outside a repository it passes silently.
type GitStatus struct{}

// Evaluate lists changed files in short status form.
func (g *GitStatus) Evaluate(_ context.Context, ev *event.Event) (*gate.Result, error) {
	repo, err := git.PlainOpenWithOptions(ev.Cwd, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return &gate.Result{}, nil
		}
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		if errors.Is(err, git.ErrIsBareRepository) {
			return &gate.Result{}, nil
		}
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	var lines []string
	for file, st := range status {
		if st.Staging == git.Unmodified && st.Worktree == git.Unmodified {
			continue
		}
		// Session state churns on every hook
		if strings.HasPrefix(file, paths.SessionDir+"/") {
			continue
		}
		lines = append(lines, fmt.Sprintf("%c%c %s", st.Staging, st.Worktree, file))
	}
	if len(lines) == 0 {
		return &gate.Result{}, nil
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i][3:] < lines[j][3:] })

	return gate.Context("## Uncommitted Changes\n\n```\n" + strings.Join(lines, "\n") + "\n```"), nil
}
