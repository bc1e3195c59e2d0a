package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/vitrinehq/go-storefront/core"
)

// SessionService is the slice of the session the commands drive.
type SessionService interface {
	Login(ctx context.Context, req core.LoginRequest) (core.LoginResult, error)
	Register(ctx context.Context, req core.RegisterRequest) (core.RegisterResult, error)
	Logout(ctx context.Context)
	Restore(ctx context.Context) bool
	FetchProfile(ctx context.Context)
	Snapshot() core.Snapshot
}

type LoginCommand struct {
	service SessionService
}

func NewLoginCommand(service SessionService) *LoginCommand {
	return &LoginCommand{service: service}
}

func (c *LoginCommand) Execute(ctx context.Context, msg LoginMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: login service is required")
	}
	out, err := c.service.Login(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RegisterCommand struct {
	service SessionService
}

func NewRegisterCommand(service SessionService) *RegisterCommand {
	return &RegisterCommand{service: service}
}

func (c *RegisterCommand) Execute(ctx context.Context, msg RegisterMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: register service is required")
	}
	out, err := c.service.Register(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type LogoutCommand struct {
	service SessionService
}

func NewLogoutCommand(service SessionService) *LogoutCommand {
	return &LogoutCommand{service: service}
}

func (c *LogoutCommand) Execute(ctx context.Context, _ LogoutMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: logout service is required")
	}
	c.service.Logout(ctx)
	storeResult(ctx, c.service.Snapshot())
	return nil
}

type RestoreCommand struct {
	service SessionService
}

func NewRestoreCommand(service SessionService) *RestoreCommand {
	return &RestoreCommand{service: service}
}

func (c *RestoreCommand) Execute(ctx context.Context, _ RestoreMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: restore service is required")
	}
	c.service.Restore(ctx)
	storeResult(ctx, c.service.Snapshot())
	return nil
}

type RefreshProfileCommand struct {
	service SessionService
}

func NewRefreshProfileCommand(service SessionService) *RefreshProfileCommand {
	return &RefreshProfileCommand{service: service}
}

func (c *RefreshProfileCommand) Execute(ctx context.Context, _ RefreshProfileMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: profile service is required")
	}
	c.service.FetchProfile(ctx)
	storeResult(ctx, c.service.Snapshot())
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
