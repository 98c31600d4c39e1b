package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vovakirdan/roomchat/internal/chatclient"
	"github.com/vovakirdan/roomchat/internal/chatsession"
	"github.com/vovakirdan/roomchat/internal/log"
	"github.com/vovakirdan/roomchat/internal/render"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "page_smoke: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	baseURL := flag.String("url", "http://localhost:8080", "server base URL")
	user := flag.String("user", "tester", "username")
	password := flag.String("password", "password123", "password")
	room := flag.String("room", "", "room id (defaults to the first room)")
	text := flag.String("text", "", "message to submit through the page form before refreshing")
	timeout := flag.Duration("timeout", 10*time.Second, "total timeout for the run")
	flag.Parse()

	logger := log.NewWriter("debug", os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := chatclient.New(*baseURL, nil)
	if _, err := client.Login(ctx, *user, *password); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	path := "/chat"
	if *room != "" {
		path += "/" + *room
	}
	page, err := client.Page(ctx, path)
	if err != nil {
		return fmt.Errorf("fetch page: %w", err)
	}

	loop := chatsession.NewLoop(16)
	go loop.Run(ctx)

	sent := make(chan error, 1)
	doc, err := render.Parse(bytes.NewReader(page), render.BindOptions{
		ClientHeight: 600,
		Submit: func(_ string, s chatsession.Submission) {
			go func() { sent <- client.Send(ctx, s.RoomID, s.Message) }()
		},
	})
	if err != nil {
		return err
	}
	if doc.Page.RoomID == "" {
		return errors.New("page carries no room id")
	}
	logger.Info().Str("room_id", doc.Page.RoomID).Msg("page bound")

	ctrl := chatsession.New(doc.Page, client, loop, logger, chatsession.Options{})

	if *text != "" {
		loop.Do(func() {
			doc.Input.SetValue(*text)
			ctrl.HandleKeyDown(chatsession.KeyEnter, false)
		})
		select {
		case err := <-sent:
			if err != nil {
				return fmt.Errorf("send: %w", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	var activated bool
	loop.Do(func() { activated = doc.ActivateRefresh(ctrl) })
	if !activated {
		return errors.New("page carries no refresh control")
	}
	for {
		var busy bool
		if !loop.Do(func() { busy = ctrl.IsRefreshing() }) {
			return ctx.Err()
		}
		if !busy {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	var markup string
	loop.Do(func() { markup = doc.MessagesMarkup() })
	fmt.Println(markup)
	return nil
}
