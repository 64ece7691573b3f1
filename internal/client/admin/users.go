package admin

import (
	"context"

	"github.com/dmitrijs2005/eventdesk/internal/client/api"
	"github.com/dmitrijs2005/eventdesk/internal/client/models"
	"github.com/dmitrijs2005/eventdesk/internal/client/optimistic"
	"github.com/dmitrijs2005/eventdesk/internal/client/validate"
)

func userID(id int64) func(models.User) bool {
	return func(u models.User) bool { return u.ID == id }
}

func (p *Panel) CreateUser(ctx context.Context, in models.UserInput) (*models.User, error) {
	return optimistic.Run(ctx, p.Users, optimistic.Mutation[models.User, *models.User]{
		Validate: func() error { return validate.User(in) },
		Apply: optimistic.Append(models.User{
			Username:    in.Username,
			Email:       in.Email,
			IsSiteAdmin: in.IsSiteAdmin,
		}),
		Remote: func(ctx context.Context) (*models.User, error) {
			return p.remote.CreateUser(ctx, in)
		},
		Reconcile: func(items []models.User, created *models.User) []models.User {
			return optimistic.ReplaceWhere(userID(0), *created)(items)
		},
	})
}

func (p *Panel) UpdateUser(ctx context.Context, id int64, patch api.UserPatch) (*models.User, error) {
	current, ok := find(p.Users.Items(), userID(id))
	if !ok {
		return nil, errNotListed("user", id)
	}
	next := applyUserPatch(current, patch)

	u, err := optimistic.Run(ctx, p.Users, optimistic.Mutation[models.User, *models.User]{
		Validate: func() error {
			return validate.User(models.UserInput{Username: next.Username, Email: next.Email, Password: deref(patch.Password)})
		},
		Apply: optimistic.ReplaceWhere(userID(id), next),
		Remote: func(ctx context.Context) (*models.User, error) {
			return p.remote.UpdateUser(ctx, id, patch)
		},
		Reconcile: func(items []models.User, updated *models.User) []models.User {
			return optimistic.ReplaceWhere(userID(id), *updated)(items)
		},
	})
	// Site admin status feeds every edit decision made for this user.
	if err == nil && patch.IsSiteAdmin != nil {
		p.invalidateUser(ctx, id)
	}
	return u, err
}

func (p *Panel) DeleteUser(ctx context.Context, id int64) error {
	_, err := optimistic.Run(ctx, p.Users, optimistic.Mutation[models.User, struct{}]{
		Apply: optimistic.RemoveWhere(userID(id)),
		Remote: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, p.remote.DeleteUser(ctx, id)
		},
	})
	if err == nil {
		p.invalidateAll(ctx)
	}
	return err
}

func applyUserPatch(u models.User, patch api.UserPatch) models.User {
	if patch.Username != nil {
		u.Username = *patch.Username
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.IsSiteAdmin != nil {
		u.IsSiteAdmin = *patch.IsSiteAdmin
	}
	return u
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
