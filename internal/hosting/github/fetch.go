package github

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	gogithub "github.com/google/go-github/v68/github"

	"github.com/flarebyte/tracker-snapshot/internal/backup"
)

// subIssueRecord is the archived shape of one parent/child link.
type subIssueRecord struct {
	ParentIssueNumber int             `json:"parent_issue_number"`
	SubIssue          *gogithub.Issue `json:"sub_issue"`
}

// Fetch lists every entity of typeName, oldest first. A scope on a child type
// limits the listing to the given parent numbers.
func (c *Client) Fetch(ctx context.Context, typeName string, scope *backup.Scope) ([]backup.Record, error) {
	switch typeName {
	case backup.TypeRepository:
		return c.fetchRepository(ctx)
	case backup.TypeLabels:
		return c.fetchLabels(ctx)
	case backup.TypeMilestones:
		return c.fetchMilestones(ctx)
	case backup.TypeIssues:
		return c.fetchIssues(ctx)
	case backup.TypeIssueComments:
		return c.fetchIssueComments(ctx, scope)
	case backup.TypeSubIssues:
		return c.fetchSubIssues(ctx, scope)
	case backup.TypePullRequests:
		return c.fetchPullRequests(ctx)
	case backup.TypePullRequestReviews:
		return c.fetchReviews(ctx, scope)
	}
	return nil, fmt.Errorf("github: fetch %s: %w", typeName, backup.ErrUnknownType)
}

func record(id string, v any) (backup.Record, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return backup.Record{}, fmt.Errorf("encode %s: %w", id, err)
	}
	return backup.Record{OriginalID: id, Payload: b}, nil
}

func (c *Client) fetchRepository(ctx context.Context) ([]backup.Record, error) {
	repo, _, err := c.client.Repositories.Get(ctx, c.owner, c.repo)
	if err != nil {
		return nil, fmt.Errorf("get repository: %w", err)
	}
	r, err := record(repo.GetFullName(), repo)
	if err != nil {
		return nil, err
	}
	return []backup.Record{r}, nil
}

func (c *Client) listLabels(ctx context.Context) ([]*gogithub.Label, error) {
	var all []*gogithub.Label
	opts := &gogithub.ListOptions{PerPage: perPage}
	for {
		page, resp, err := c.client.Issues.ListLabels(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("list labels: %w", err)
		}
		all = append(all, page...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

func (c *Client) fetchLabels(ctx context.Context) ([]backup.Record, error) {
	labels, err := c.listLabels(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]backup.Record, 0, len(labels))
	for _, l := range labels {
		// Issues reference labels by name, so the name is the label's identity.
		r, err := record(l.GetName(), l)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (c *Client) listMilestones(ctx context.Context) ([]*gogithub.Milestone, error) {
	var all []*gogithub.Milestone
	opts := &gogithub.MilestoneListOptions{State: "all", ListOptions: gogithub.ListOptions{PerPage: perPage}}
	for {
		page, resp, err := c.client.Issues.ListMilestones(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("list milestones: %w", err)
		}
		all = append(all, page...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].GetNumber() < all[j].GetNumber() })
	return all, nil
}

func (c *Client) fetchMilestones(ctx context.Context) ([]backup.Record, error) {
	milestones, err := c.listMilestones(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]backup.Record, 0, len(milestones))
	for _, m := range milestones {
		r, err := record(strconv.Itoa(m.GetNumber()), m)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// listIssues returns issues only; the issues endpoint also lists pull requests.
func (c *Client) listIssues(ctx context.Context) ([]*gogithub.Issue, error) {
	var all []*gogithub.Issue
	opts := &gogithub.IssueListByRepoOptions{
		State:       "all",
		Sort:        "created",
		Direction:   "asc",
		ListOptions: gogithub.ListOptions{PerPage: perPage},
	}
	for {
		page, resp, err := c.client.Issues.ListByRepo(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("list issues: %w", err)
		}
		for _, is := range page {
			if !is.IsPullRequest() {
				all = append(all, is)
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	numbers := make([]int, len(all))
	for i, is := range all {
		numbers[i] = is.GetNumber()
	}
	c.mu.Lock()
	c.issueNumbers = numbers
	c.mu.Unlock()
	return all, nil
}

func (c *Client) fetchIssues(ctx context.Context) ([]backup.Record, error) {
	issues, err := c.listIssues(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]backup.Record, 0, len(issues))
	for _, is := range issues {
		r, err := record(strconv.Itoa(is.GetNumber()), is)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// scopeNumbers turns scoped parent ids into issue or pull request numbers.
func scopeNumbers(scope *backup.Scope) ([]int, error) {
	out := make([]int, 0, len(scope.ParentIDs))
	for _, id := range scope.ParentIDs {
		n, err := strconv.Atoi(id)
		if err != nil {
			return nil, fmt.Errorf("scope: %s id %q is not a number", scope.ParentType, id)
		}
		out = append(out, n)
	}
	return out, nil
}

func (c *Client) fetchIssueComments(ctx context.Context, scope *backup.Scope) ([]backup.Record, error) {
	numbers := []int{0} // 0 lists the comments of every issue and pull request
	if scope != nil {
		var err error
		if numbers, err = scopeNumbers(scope); err != nil {
			return nil, err
		}
	}
	var out []backup.Record
	for _, n := range numbers {
		opts := &gogithub.IssueListCommentsOptions{
			Sort:        gogithub.Ptr("created"),
			Direction:   gogithub.Ptr("asc"),
			ListOptions: gogithub.ListOptions{PerPage: perPage},
		}
		for {
			page, resp, err := c.client.Issues.ListComments(ctx, c.owner, c.repo, n, opts)
			if err != nil {
				return nil, fmt.Errorf("list comments of #%d: %w", n, err)
			}
			for _, cm := range page {
				r, err := record(strconv.FormatInt(cm.GetID(), 10), cm)
				if err != nil {
					return nil, err
				}
				out = append(out, r)
			}
			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
	}
	return out, nil
}

func (c *Client) knownIssueNumbers(ctx context.Context, scope *backup.Scope) ([]int, error) {
	if scope != nil {
		return scopeNumbers(scope)
	}
	c.mu.Lock()
	numbers := c.issueNumbers
	c.mu.Unlock()
	if numbers != nil {
		return numbers, nil
	}
	if _, err := c.listIssues(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.issueNumbers, nil
}

func (c *Client) fetchSubIssues(ctx context.Context, scope *backup.Scope) ([]backup.Record, error) {
	parents, err := c.knownIssueNumbers(ctx, scope)
	if err != nil {
		return nil, err
	}
	var out []backup.Record
	for _, parent := range parents {
		for page := 1; page != 0; {
			u := fmt.Sprintf("repos/%s/%s/issues/%d/sub_issues?per_page=%d&page=%d", c.owner, c.repo, parent, perPage, page)
			req, err := c.client.NewRequest("GET", u, nil)
			if err != nil {
				return nil, err
			}
			var subs []*gogithub.Issue
			resp, err := c.client.Do(ctx, req, &subs)
			if err != nil {
				return nil, fmt.Errorf("list sub-issues of #%d: %w", parent, err)
			}
			for _, sub := range subs {
				id := fmt.Sprintf("%d:%d", parent, sub.GetNumber())
				r, err := record(id, subIssueRecord{ParentIssueNumber: parent, SubIssue: sub})
				if err != nil {
					return nil, err
				}
				out = append(out, r)
			}
			page = resp.NextPage
		}
	}
	return out, nil
}

func (c *Client) listPullRequests(ctx context.Context) ([]*gogithub.PullRequest, error) {
	var all []*gogithub.PullRequest
	opts := &gogithub.PullRequestListOptions{
		State:       "all",
		Sort:        "created",
		Direction:   "asc",
		ListOptions: gogithub.ListOptions{PerPage: perPage},
	}
	for {
		page, resp, err := c.client.PullRequests.List(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("list pull requests: %w", err)
		}
		all = append(all, page...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	numbers := make([]int, len(all))
	for i, pr := range all {
		numbers[i] = pr.GetNumber()
	}
	c.mu.Lock()
	c.pullNumbers = numbers
	c.mu.Unlock()
	return all, nil
}

func (c *Client) fetchPullRequests(ctx context.Context) ([]backup.Record, error) {
	prs, err := c.listPullRequests(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]backup.Record, 0, len(prs))
	for _, pr := range prs {
		r, err := record(strconv.Itoa(pr.GetNumber()), pr)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (c *Client) fetchReviews(ctx context.Context, scope *backup.Scope) ([]backup.Record, error) {
	var numbers []int
	if scope != nil {
		var err error
		if numbers, err = scopeNumbers(scope); err != nil {
			return nil, err
		}
	} else {
		c.mu.Lock()
		numbers = c.pullNumbers
		c.mu.Unlock()
		if numbers == nil {
			if _, err := c.listPullRequests(ctx); err != nil {
				return nil, err
			}
			c.mu.Lock()
			numbers = c.pullNumbers
			c.mu.Unlock()
		}
	}
	var out []backup.Record
	for _, n := range numbers {
		opts := &gogithub.ListOptions{PerPage: perPage}
		for {
			page, resp, err := c.client.PullRequests.ListReviews(ctx, c.owner, c.repo, n, opts)
			if err != nil {
				return nil, fmt.Errorf("list reviews of #%d: %w", n, err)
			}
			for _, rv := range page {
				r, err := record(strconv.FormatInt(rv.GetID(), 10), rv)
				if err != nil {
					return nil, err
				}
				out = append(out, r)
			}
			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
	}
	return out, nil
}
