package github

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	gogithub "github.com/google/go-github/v68/github"

	"github.com/flarebyte/tracker-snapshot/internal/backup"
)

const milestoneLink = "milestone.number"

// Create recreates one archived entity and returns its identifier in this
// repository: the name for labels, the number for milestones, issues and
// pull requests, the id for comments and reviews.
func (c *Client) Create(ctx context.Context, req backup.CreateRequest) (string, error) {
	switch req.Type {
	case backup.TypeRepository:
		repo, err := c.editRepository(ctx, req)
		if err != nil {
			return "", err
		}
		return repo.GetFullName(), nil
	case backup.TypeLabels:
		var l gogithub.Label
		if err := decode(req, &l); err != nil {
			return "", err
		}
		created, _, err := c.client.Issues.CreateLabel(ctx, c.owner, c.repo, labelFields(&l))
		if err != nil {
			return "", fmt.Errorf("create label: %w", err)
		}
		c.mu.Lock()
		c.labelNames[req.Record.OriginalID] = created.GetName()
		c.mu.Unlock()
		return created.GetName(), nil
	case backup.TypeMilestones:
		var m gogithub.Milestone
		if err := decode(req, &m); err != nil {
			return "", err
		}
		created, _, err := c.client.Issues.CreateMilestone(ctx, c.owner, c.repo, milestoneFields(&m))
		if err != nil {
			return "", fmt.Errorf("create milestone: %w", err)
		}
		return strconv.Itoa(created.GetNumber()), nil
	case backup.TypeIssues:
		return c.createIssue(ctx, req)
	case backup.TypeIssueComments:
		var cm gogithub.IssueComment
		if err := decode(req, &cm); err != nil {
			return "", err
		}
		n, err := number(req.Parent)
		if err != nil {
			return "", err
		}
		created, _, err := c.client.Issues.CreateComment(ctx, c.owner, c.repo, n, &gogithub.IssueComment{Body: cm.Body})
		if err != nil {
			return "", fmt.Errorf("create comment on #%d: %w", n, err)
		}
		return strconv.FormatInt(created.GetID(), 10), nil
	case backup.TypeSubIssues:
		return c.createSubIssue(ctx, req)
	case backup.TypePullRequests:
		return c.createPullRequest(ctx, req)
	case backup.TypePullRequestReviews:
		var rv gogithub.PullRequestReview
		if err := decode(req, &rv); err != nil {
			return "", err
		}
		n, err := number(req.Parent)
		if err != nil {
			return "", err
		}
		created, _, err := c.client.PullRequests.CreateReview(ctx, c.owner, c.repo, n, &gogithub.PullRequestReviewRequest{
			Body:  rv.Body,
			Event: gogithub.Ptr("COMMENT"),
		})
		if err != nil {
			return "", fmt.Errorf("create review on #%d: %w", n, err)
		}
		return strconv.FormatInt(created.GetID(), 10), nil
	}
	return "", fmt.Errorf("github: create %s: %w", req.Type, backup.ErrUnknownType)
}

// Update rewrites an existing entity with the archived fields. Types without
// an update path return backup.ErrUpdateUnsupported.
func (c *Client) Update(ctx context.Context, targetID string, req backup.CreateRequest) error {
	switch req.Type {
	case backup.TypeRepository:
		_, err := c.editRepository(ctx, req)
		return err
	case backup.TypeLabels:
		var l gogithub.Label
		if err := decode(req, &l); err != nil {
			return err
		}
		edited, _, err := c.client.Issues.EditLabel(ctx, c.owner, c.repo, targetID, labelFields(&l))
		if err != nil {
			return fmt.Errorf("edit label %q: %w", targetID, err)
		}
		c.mu.Lock()
		c.labelNames[req.Record.OriginalID] = edited.GetName()
		c.mu.Unlock()
		return nil
	case backup.TypeMilestones:
		var m gogithub.Milestone
		if err := decode(req, &m); err != nil {
			return err
		}
		n, err := number(targetID)
		if err != nil {
			return err
		}
		if _, _, err := c.client.Issues.EditMilestone(ctx, c.owner, c.repo, n, milestoneFields(&m)); err != nil {
			return fmt.Errorf("edit milestone #%d: %w", n, err)
		}
		return nil
	case backup.TypeIssues:
		var is gogithub.Issue
		if err := decode(req, &is); err != nil {
			return err
		}
		n, err := number(targetID)
		if err != nil {
			return err
		}
		if _, _, err := c.client.Issues.Edit(ctx, c.owner, c.repo, n, c.issueRequest(&is, req.Links)); err != nil {
			return fmt.Errorf("edit issue #%d: %w", n, err)
		}
		return nil
	}
	return backup.ErrUpdateUnsupported
}

// ExistingKeys lists label names and milestone titles already present.
func (c *Client) ExistingKeys(ctx context.Context, typeName string) (map[string]string, error) {
	out := map[string]string{}
	switch typeName {
	case backup.TypeLabels:
		labels, err := c.listLabels(ctx)
		if err != nil {
			return nil, err
		}
		for _, l := range labels {
			out[l.GetName()] = l.GetName()
		}
	case backup.TypeMilestones:
		milestones, err := c.listMilestones(ctx)
		if err != nil {
			return nil, err
		}
		for _, m := range milestones {
			out[m.GetTitle()] = strconv.Itoa(m.GetNumber())
		}
	}
	return out, nil
}

func decode(req backup.CreateRequest, v any) error {
	if err := json.Unmarshal(req.Record.Payload, v); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Type, req.Record.OriginalID, err)
	}
	return nil
}

func number(id string) (int, error) {
	n, err := strconv.Atoi(id)
	if err != nil {
		return 0, fmt.Errorf("github: %q is not an issue or pull request number", id)
	}
	return n, nil
}

func labelFields(l *gogithub.Label) *gogithub.Label {
	return &gogithub.Label{Name: l.Name, Color: l.Color, Description: l.Description}
}

func milestoneFields(m *gogithub.Milestone) *gogithub.Milestone {
	return &gogithub.Milestone{Title: m.Title, Description: m.Description, State: m.State, DueOn: m.DueOn}
}

func (c *Client) editRepository(ctx context.Context, req backup.CreateRequest) (*gogithub.Repository, error) {
	var r gogithub.Repository
	if err := decode(req, &r); err != nil {
		return nil, err
	}
	edited, _, err := c.client.Repositories.Edit(ctx, c.owner, c.repo, &gogithub.Repository{
		Description: r.Description,
		Homepage:    r.Homepage,
		HasIssues:   r.HasIssues,
		HasWiki:     r.HasWiki,
		HasProjects: r.HasProjects,
	})
	if err != nil {
		return nil, fmt.Errorf("edit repository: %w", err)
	}
	return edited, nil
}

// issueRequest maps archived label names to their restored names and the
// milestone to its remapped number. A milestone link that did not resolve is
// left out.
func (c *Client) issueRequest(is *gogithub.Issue, links map[string]string) *gogithub.IssueRequest {
	req := &gogithub.IssueRequest{Title: is.Title, Body: is.Body}
	if len(is.Labels) > 0 {
		names := make([]string, 0, len(is.Labels))
		c.mu.Lock()
		for _, l := range is.Labels {
			name := l.GetName()
			if restored, ok := c.labelNames[name]; ok {
				name = restored
			}
			names = append(names, name)
		}
		c.mu.Unlock()
		req.Labels = &names
	}
	if ms, ok := links[milestoneLink]; ok {
		if n, err := strconv.Atoi(ms); err == nil {
			req.Milestone = &n
		}
	}
	return req
}

func (c *Client) createIssue(ctx context.Context, req backup.CreateRequest) (string, error) {
	var is gogithub.Issue
	if err := decode(req, &is); err != nil {
		return "", err
	}
	created, _, err := c.client.Issues.Create(ctx, c.owner, c.repo, c.issueRequest(&is, req.Links))
	if err != nil {
		return "", fmt.Errorf("create issue: %w", err)
	}
	n := created.GetNumber()
	if is.GetState() == "closed" {
		closeReq := &gogithub.IssueRequest{State: gogithub.Ptr("closed"), StateReason: is.StateReason}
		if _, _, err := c.client.Issues.Edit(ctx, c.owner, c.repo, n, closeReq); err != nil {
			c.log.Warn("created issue but failed to close it", "number", n, "error", err)
		}
	}
	return strconv.Itoa(n), nil
}

func (c *Client) createSubIssue(ctx context.Context, req backup.CreateRequest) (string, error) {
	parent, err := number(req.Parent)
	if err != nil {
		return "", err
	}
	child, err := number(req.Links["sub_issue.number"])
	if err != nil {
		return "", err
	}
	// The endpoint takes the child's database id, not its number.
	sub, _, err := c.client.Issues.Get(ctx, c.owner, c.repo, child)
	if err != nil {
		return "", fmt.Errorf("get issue #%d: %w", child, err)
	}
	u := fmt.Sprintf("repos/%s/%s/issues/%d/sub_issues", c.owner, c.repo, parent)
	httpReq, err := c.client.NewRequest("POST", u, map[string]int64{"sub_issue_id": sub.GetID()})
	if err != nil {
		return "", err
	}
	if _, err := c.client.Do(ctx, httpReq, nil); err != nil {
		return "", fmt.Errorf("add sub-issue #%d to #%d: %w", child, parent, err)
	}
	return fmt.Sprintf("%d:%d", parent, child), nil
}

// createPullRequest reopens a pull request between the archived branches.
// Both branches must exist in the target repository.
func (c *Client) createPullRequest(ctx context.Context, req backup.CreateRequest) (string, error) {
	var pr gogithub.PullRequest
	if err := decode(req, &pr); err != nil {
		return "", err
	}
	created, _, err := c.client.PullRequests.Create(ctx, c.owner, c.repo, &gogithub.NewPullRequest{
		Title: pr.Title,
		Body:  pr.Body,
		Head:  gogithub.Ptr(pr.GetHead().GetRef()),
		Base:  gogithub.Ptr(pr.GetBase().GetRef()),
		Draft: pr.Draft,
	})
	if err != nil {
		return "", fmt.Errorf("create pull request %s <- %s: %w", pr.GetBase().GetRef(), pr.GetHead().GetRef(), err)
	}
	n := created.GetNumber()
	if ms, ok := req.Links[milestoneLink]; ok {
		if m, err := strconv.Atoi(ms); err == nil {
			if _, _, err := c.client.Issues.Edit(ctx, c.owner, c.repo, n, &gogithub.IssueRequest{Milestone: &m}); err != nil {
				c.log.Warn("created pull request but failed to set milestone", "number", n, "error", err)
			}
		}
	}
	return strconv.Itoa(n), nil
}
