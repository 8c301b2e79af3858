package jsonfile

import (
	"context"
	"time"

	"github.com/geocoder89/sitecms/internal/domain/user"
)

type UsersRepo struct {
	s *Store
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var (
		out   user.User
		found bool
	)
	r.s.view(func(doc *document) {
		for _, u := range doc.Users {
			if u.ID == id {
				out, found = u.toUser(), true
				return
			}
		}
	})
	if !found {
		return user.User{}, user.ErrNotFound
	}
	return out, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	email = user.NormalizeEmail(email)

	var (
		out   user.User
		found bool
	)
	r.s.view(func(doc *document) {
		for _, u := range doc.Users {
			if user.NormalizeEmail(u.Email) == email {
				out, found = u.toUser(), true
				return
			}
		}
	})
	if !found {
		return user.User{}, user.ErrNotFound
	}
	return out, nil
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	u.Email = user.NormalizeEmail(u.Email)

	err := r.s.update(ctx, func(doc *document) error {
		for _, existing := range doc.Users {
			if user.NormalizeEmail(existing.Email) == u.Email {
				return user.ErrEmailTaken
			}
		}
		doc.Users = append(doc.Users, fromUser(u))
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) UpdateProfile(ctx context.Context, id string, p user.Profile) (user.User, error) {
	var out user.User

	err := r.s.update(ctx, func(doc *document) error {
		idx := -1
		for i, u := range doc.Users {
			if u.ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return user.ErrNotFound
		}

		u := doc.Users[idx]

		if p.Email != nil {
			email := user.NormalizeEmail(*p.Email)
			for i, other := range doc.Users {
				if i != idx && user.NormalizeEmail(other.Email) == email {
					return user.ErrEmailTaken
				}
			}
			u.Email = email
		}
		if p.Name != nil {
			u.Name = *p.Name
		}
		if p.PasswordHash != nil && p.PasswordSalt != nil {
			u.PasswordSalt = *p.PasswordSalt
			u.PasswordHash = *p.PasswordHash
			u.MustChangePassword = false
		}
		u.UpdatedAt = time.Now().UTC()

		doc.Users[idx] = u
		out = u.toUser()
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return out, nil
}

func (r *UsersRepo) HasAdmin(ctx context.Context) (bool, error) {
	var found bool
	r.s.view(func(doc *document) {
		for _, u := range doc.Users {
			if u.Role == user.RoleAdmin {
				found = true
				return
			}
		}
	})
	return found, nil
}
