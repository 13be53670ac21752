package service

import "context"

// CreationGate decides whether an account may mint another candidate share
// link. Billing and plan enforcement live behind this interface; the core
// lifecycle never inspects subscription state directly.
type CreationGate interface {
	AllowSubmission(ctx context.Context, accountID uint) error
}

type allowAllGate struct{}

// NewAllowAllGate returns a gate that admits every request. Deployments wire
// the billing service's implementation instead.
func NewAllowAllGate() CreationGate {
	return allowAllGate{}
}

func (allowAllGate) AllowSubmission(context.Context, uint) error {
	return nil
}
