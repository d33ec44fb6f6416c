package cli

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	if email := a.session.Email(); email != "" {
		return fmt.Sprintf("(%s)", email)
	}
	return ""
}

func (a *App) Root(ctx context.Context) {

	log.Println("Welcome to PostBoard CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("pb %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Println("Available commands: (l)ist, add, delete <id>, attach <id>, fetch <id>, logout, exit")
			} else {
				fmt.Println("Available commands: (l)ist, register, login, exit")
			}

		case "register":
			a.Register(ctx)
		case "login":
			a.Login(ctx)
		case "l", "list":
			a.list(ctx)
		case "add":
			a.add(ctx)
		case "delete":
			a.delete(ctx, args)
		case "attach":
			a.attach(ctx, args)
		case "fetch":
			a.fetch(ctx, args)
		case "logout":
			a.Logout(ctx)
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}

}
