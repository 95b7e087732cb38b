package domain

// LastPage is the NextPage sentinel returned with the final page
const LastPage = -1

// PageOptions requests one page of results. Page is 1-based.
type PageOptions struct {
	Page  int
	Limit int
}

// Offset returns the number of rows to skip
func (o PageOptions) Offset() int {
	if o.Page < 1 {
		return 0
	}
	return (o.Page - 1) * o.Limit
}

// PageResult describes where a page sits in the full result set
type PageResult struct {
	NextPage     int
	TotalOfPages int
}

// NewPageResult computes page metadata from the total row count
func NewPageResult(opts PageOptions, total int) *PageResult {
	if opts.Limit <= 0 {
		return &PageResult{NextPage: LastPage, TotalOfPages: 1}
	}

	pages := (total + opts.Limit - 1) / opts.Limit
	next := opts.Page + 1
	if opts.Page < 1 {
		next = 2
	}
	if next > pages {
		next = LastPage
	}
	return &PageResult{NextPage: next, TotalOfPages: pages}
}

// SubscriptionFilter narrows subscription listings. Zero values mean "any".
type SubscriptionFilter struct {
	Page     *PageOptions
	Status   SubscriptionStatus
	TenantID string
}

// SubscriptionPage is one listing result. PageResult is nil when Page was not requested.
type SubscriptionPage struct {
	PageResult *PageResult
	Results    []*Subscription
}
