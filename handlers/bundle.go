package handlers

import (
	sessionRepo "shutterhub/database/repository/session"
	"shutterhub/services/allocation"
	"shutterhub/services/escrow"
	"shutterhub/services/matching"
	"shutterhub/services/user"
	"shutterhub/services/waitlist"

	"github.com/go-redis/redis/v8"
)

// HandlerBundle groups all endpoint handlers and the services they call.
type HandlerBundle struct {
	Engine      *allocation.Engine
	Waitlist    *waitlist.Manager
	Ledger      *escrow.Ledger
	Matching    matching.MatchingService
	Users       user.UserService
	Sessions    sessionRepo.SessionRepository
	CacheClient *redis.Client
}
