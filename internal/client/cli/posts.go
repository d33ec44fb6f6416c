package cli

import (
	"context"
	"fmt"
	"log"
	"os"
)

func (a *App) list(ctx context.Context) {
	posts, err := a.api.ListPosts(ctx)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	if len(posts) == 0 {
		fmt.Println("No posts yet")
		return
	}

	for _, p := range posts {
		fmt.Printf("%s  %s  %s\n", p.ID, p.CreatedAt.Format("2006-01-02 15:04"), p.Title)
		if p.Body != "" {
			fmt.Printf("    %s\n", p.Body)
		}
	}
}

func (a *App) add(ctx context.Context) {

	title, err := GetSimpleText(a.reader, "Enter title", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	body, err := GetMultiline(a.reader, "Enter body", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	post, err := a.api.CreatePost(ctx, title, body)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	log.Printf("Created post %s", post.ID)
}

func (a *App) delete(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: delete <id>")
		return
	}

	if err := a.api.DeletePost(ctx, args[0]); err != nil {
		log.Printf("error: %v", err)
		return
	}

	log.Printf("Deleted post %s", args[0])
}

func (a *App) attach(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: attach <id>")
		return
	}

	key, url, err := a.api.AttachmentUploadURL(ctx, args[0])
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	fmt.Printf("Upload your file with:\n  curl -X PUT --upload-file <path> '%s'\n(storage key: %s)\n", url, key)
}

func (a *App) fetch(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: fetch <id>")
		return
	}

	url, err := a.api.AttachmentDownloadURL(ctx, args[0])
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	fmt.Printf("Download URL:\n  %s\n", url)
}
