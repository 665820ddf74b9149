// Package triage decides what happens to an incoming incident report: whether
// it is allowed or blocked, which office should handle it, whether it is a
// real incident or a general concern, and which earlier reports it resembles.
// It defines the Service (business boundary), Engine (pipeline orchestration),
// the moderation gate, office router, incident classifier, and the Provider
// interface for the text-analysis collaborator.
package triage
