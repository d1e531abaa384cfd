package server

import "context"

// Server serves one handler until its context ends.
type Server interface {
	Options() Options
	Handle(handler any) error
	Run(ctx context.Context) error
}
