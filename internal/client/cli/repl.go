package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// commandRunner is the minimal surface the REPL needs. App satisfies it;
// tests can provide a stub.
type commandRunner interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Whoami(ctx context.Context) error
	Avatar(ctx context.Context) error
	List(ctx context.Context, force bool) error
	Save(ctx context.Context) error
	Edit(ctx context.Context) error
	Remove(ctx context.Context) error
	Watch(ctx context.Context) error
}

// runREPL reads commands line by line and dispatches them. The loop exits on
// EOF or "exit"/"quit". Command handlers report their own errors; the loop
// only keeps going.
func runREPL(ctx context.Context, a commandRunner, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("pb> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: list, refresh, save, edit, rm, watch, whoami, avatar, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "whoami":
			_ = a.Whoami(ctx)

		case "avatar":
			_ = a.Avatar(ctx)

		case "list":
			_ = a.List(ctx, false)

		case "refresh":
			_ = a.List(ctx, true)

		case "save":
			_ = a.Save(ctx)

		case "edit":
			_ = a.Edit(ctx)

		case "rm":
			_ = a.Remove(ctx)

		case "watch":
			_ = a.Watch(ctx)

		case "exit", "quit":
			return

		default:
			printlnFn("Unknown command. Type 'help' for the command list.")
		}
	}
}
