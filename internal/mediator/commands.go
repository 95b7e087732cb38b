package mediator

import "time"

// Command is the closed set of messages the mediator routes.
// Only types declared in this package implement it.
type Command interface {
	CommandName() string
	isCommand()
}

// GetSubscriberCommand asks the subscriber module for a subscriber.
// Result: *domain.Subscriber, nil when absent.
type GetSubscriberCommand struct {
	SubscriberID string
}

// UserExistsCommand asks the company module whether a user/tenant exists.
// Result: bool.
type UserExistsCommand struct {
	UserID string
}

// UpdateSubscriptionCommand pauses or resumes a subscription.
// Result: *domain.Subscription.
type UpdateSubscriptionCommand struct {
	SubscriptionID    string
	PauseSubscription bool
}

// RenewSubscriptionCommand closes a charged billing cycle.
// Result: *domain.Subscription.
type RenewSubscriptionCommand struct {
	BillingDate    time.Time
	SubscriptionID string
}

func (GetSubscriberCommand) CommandName() string      { return "GetSubscriberCommand" }
func (UserExistsCommand) CommandName() string         { return "UserExistsCommand" }
func (UpdateSubscriptionCommand) CommandName() string { return "UpdateSubscriptionCommand" }
func (RenewSubscriptionCommand) CommandName() string  { return "RenewSubscriptionCommand" }

func (GetSubscriberCommand) isCommand()      {}
func (UserExistsCommand) isCommand()         {}
func (UpdateSubscriptionCommand) isCommand() {}
func (RenewSubscriptionCommand) isCommand()  {}
