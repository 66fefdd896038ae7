package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
)

// Login asks for credentials and signs in. The follow-up session refresh
// populates the store synchronously so the prompt reflects the identity
// right away.
func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}

	if err := a.authService.SignInWithEmail(ctx, email, password); err != nil {
		fmt.Fprintf(a.out, "Sign-in failed: %v\n", err)
		return err
	}
	if err := a.authService.RefreshSession(ctx); err != nil {
		a.log.Warn(ctx, "session refresh after sign-in failed", "error", err)
	}
	fmt.Fprintf(a.out, "Signed in as %s\n", a.status())
	return nil
}

func (a *App) Register(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	name, err := GetSimpleText(a.reader, "Display name (optional)", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}

	if err := a.authService.SignUp(ctx, email, password, name); err != nil {
		fmt.Fprintf(a.out, "Sign-up failed: %v\n", err)
		return err
	}
	fmt.Fprintln(a.out, "Account created. Check your email if confirmation is required.")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.syncService.UnsubscribeRealtime()
	if err := a.authService.SignOut(ctx); err != nil {
		fmt.Fprintf(a.out, "Sign-out reported an error: %v\n", err)
	}
	a.entryStore.Clear()
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}

// Avatar uploads a local image file as the profile picture.
func (a *App) Avatar(ctx context.Context) error {
	path, err := GetSimpleText(a.reader, "Path to image file", a.out)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(a.out, "Cannot read %s: %v\n", path, err)
		return err
	}

	p, err := a.authService.UploadAvatar(ctx, data, http.DetectContentType(data))
	if err != nil {
		fmt.Fprintf(a.out, "Avatar upload failed: %v\n", err)
		return err
	}
	fmt.Fprintf(a.out, "Avatar updated: %s\n", p.AvatarURL)
	return nil
}

func (a *App) Whoami(ctx context.Context) error {
	user := a.authStore.User()
	if user == nil {
		fmt.Fprintln(a.out, "Not signed in.")
		return nil
	}
	fmt.Fprintf(a.out, "User: %s (%s)\n", user.Email, user.Id)
	if p := a.authStore.Profile(); p != nil {
		fmt.Fprintf(a.out, "Profile: %s\n", p.Name)
	}
	return nil
}
