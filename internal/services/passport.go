package services

import (
	"context"
	"errors"

	"github.com/go-authgate/passport-local/internal/models"
	"github.com/go-authgate/passport-local/local"
	"github.com/go-authgate/passport-local/params"
	"github.com/go-authgate/passport-local/passport"
)

// Failure messages handed back to the strategy.
const (
	MessageInvalidCredentials = "Incorrect username or password."
	MessageEmailTaken         = "That email is already taken."
	MessageUsernameTaken      = "That username is already taken."
	MessageInvalidEmail       = "Please enter a valid email address."
	MessageWeakPassword       = "Password must be at least 8 characters."
	MessagePasswordTooLong    = "Password must be at most 72 bytes."
	MessageSignupDisabled     = "Sign up is disabled."
	MessageRegistered         = "Successfully registered."
)

// Signup form fields read next to the email and password.
const (
	SignupUsernameField = "username"
	SignupFullNameField = "full_name"
)

// LoginVerify returns the verify callback of the login strategy. Wrong
// credentials become a failure; backend faults become an error.
func (s *UserService) LoginVerify() local.VerifyFunc {
	return func(ctx context.Context, username, password string, done local.DoneFunc) {
		user, err := s.Authenticate(ctx, username, password)
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			done(nil, false, passport.Info{"message": MessageInvalidCredentials})
		case err != nil:
			done(err, nil, nil)
		default:
			done(nil, user, nil)
		}
	}
}

// SignupVerify returns the verify callback of the signup strategy. It is
// registered with the email as its username field and reads the optional
// username and full name from the same request.
func (s *UserService) SignupVerify() local.VerifyWithRequestFunc {
	return func(req *passport.Request, email, password string, done local.DoneFunc) {
		user, err := s.Register(req.Context(), RegisterInput{
			Username: field(req, SignupUsernameField),
			Email:    email,
			Password: password,
			FullName: field(req, SignupFullNameField),
		})

		fail := func(msg string) { done(nil, nil, passport.Info{"message": msg}) }
		switch {
		case errors.Is(err, ErrEmailTaken):
			fail(MessageEmailTaken)
		case errors.Is(err, ErrUsernameTaken):
			fail(MessageUsernameTaken)
		case errors.Is(err, ErrInvalidEmail):
			fail(MessageInvalidEmail)
		case errors.Is(err, ErrWeakPassword):
			fail(MessageWeakPassword)
		case errors.Is(err, ErrPasswordTooLong):
			fail(MessagePasswordTooLong)
		case errors.Is(err, ErrSignupNotAllowed):
			fail(MessageSignupDisabled)
		case err != nil:
			done(err, nil, nil)
		default:
			done(nil, user, passport.Info{"message": MessageRegistered})
		}
	}
}

func field(req *passport.Request, name string) string {
	v, ok := params.Lookup(req.Body, name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// SerializeUser stores the user ID in the session.
func (s *UserService) SerializeUser(_ context.Context, user any) (string, error) {
	u, ok := user.(*models.User)
	if !ok || u == nil || u.ID == "" {
		return "", ErrUnsupportedUser
	}
	return u.ID, nil
}

// DeserializeUser restores the session user. A user that no longer exists
// yields nil so the session is dropped.
func (s *UserService) DeserializeUser(ctx context.Context, id string) (any, error) {
	user, err := s.GetUserByID(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
