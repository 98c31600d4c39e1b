package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/roomchat/internal/chatclient"
	"github.com/vovakirdan/roomchat/internal/chatsession"
	"github.com/vovakirdan/roomchat/internal/config"
	"github.com/vovakirdan/roomchat/internal/log"
	"github.com/vovakirdan/roomchat/internal/proto"
	"github.com/vovakirdan/roomchat/internal/tui"
)

var rootCmd = &cobra.Command{
	Use:          "roomchat",
	Short:        "Terminal client for a roomchat server",
	SilenceUsage: true,
	RunE:         runChat,
}

var (
	flagConfig   string
	flagURL      string
	flagUser     string
	flagPassword string
	flagRoom     string
	flagLogFile  string
)

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&flagConfig, "config", "", "path to config.yaml (client section)")
	flags.StringVar(&flagURL, "url", "", "server base URL")
	flags.StringVar(&flagUser, "user", "", "username")
	flags.StringVar(&flagPassword, "password", "", "password (or ROOMCHAT_CLIENT_PASSWORD)")
	flags.StringVar(&flagRoom, "room", "", "room id to open (defaults to the first room)")
	flags.StringVar(&flagLogFile, "log-file", "", "file receiving client logs")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "roomchat: %v\n", err)
		os.Exit(1)
	}
}

func runChat(_ *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	cfg, _, err := config.Load(nil, flagConfig)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cc := cfg.Client
	cc.UpdateFrom(config.ClientConfig{
		BaseURL:  flagURL,
		Username: flagUser,
		Password: flagPassword,
		RoomID:   flagRoom,
		LogFile:  flagLogFile,
	})
	if cc.Username == "" || cc.Password == "" {
		return errors.New("username and password are required (--user, --password)")
	}

	logger, closer, err := log.NewFile(cfg.LogLevel, cc.LogFile)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := chatclient.New(cc.BaseURL, nil)
	user, err := client.Login(ctx, cc.Username, cc.Password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	room, err := pickRoom(ctx, client, cc.RoomID)
	if err != nil {
		return err
	}
	logger.Info().Str("user", user.Username).Int64("room_id", room.ID).Msg("session started")

	dispatcher := &tui.Dispatcher{}
	model := tui.New(ctx, client, dispatcher, logger, tui.Options{
		RoomID:   strconv.FormatInt(room.ID, 10),
		RoomName: room.Name,
		Username: user.Username,
		Session: chatsession.Options{
			Interval:         cc.PollInterval,
			SubmitResetDelay: cc.SubmitResetDelay,
			NoticeTTL:        cc.NoticeTTL,
			BottomTolerance:  cc.BottomTolerance,
		},
	})

	program := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithReportFocus(),
	)
	dispatcher.Attach(program)

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

// pickRoom returns the requested room, or the first room of the user.
func pickRoom(ctx context.Context, client *chatclient.Client, wanted string) (proto.Room, error) {
	rooms, err := client.Rooms(ctx)
	if err != nil {
		return proto.Room{}, fmt.Errorf("list rooms: %w", err)
	}
	if len(rooms) == 0 {
		return proto.Room{}, errors.New("you are not a member of any rooms")
	}
	if wanted == "" {
		return rooms[0], nil
	}
	for _, r := range rooms {
		if strconv.FormatInt(r.ID, 10) == wanted || r.Name == wanted {
			return r, nil
		}
	}
	return proto.Room{}, fmt.Errorf("room %q not found among your rooms", wanted)
}
