package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"chat-client/internal/api"
	"chat-client/internal/config"
	"chat-client/internal/logging"
	"chat-client/internal/models"
	"chat-client/internal/session"
)

func main() {
	configPath := flag.String("config", "", "directory containing client.yaml")
	userID := flag.String("user", "", "user id to connect as (overrides config)")
	token := flag.String("token", "", "bearer token (overrides config)")
	flag.Parse()

	cfg, err := config.LoadClient(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if *userID != "" {
		cfg.UserID = *userID
	}
	if *token != "" {
		cfg.Token = *token
	}
	if cfg.UserID == "" {
		fmt.Fprintln(os.Stderr, "a user id is required (-user or config)")
		os.Exit(1)
	}
	if cfg.Token == "" {
		// The devserver accepts the user id as the token.
		cfg.Token = cfg.UserID
	}

	logger := logging.Init(cfg.Log, "chat-client")

	client := api.NewClient(cfg.APIBaseURL, cfg.Token)
	sess := session.New(
		session.Identity{ID: cfg.UserID},
		client,
		cfg.SocketURL,
		cfg.ReconnectDelay,
		logger,
	)

	ctx := context.Background()
	if err := sess.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start session")
	}
	defer sess.Close()

	fmt.Printf("connected as %s\n", cfg.UserID)
	printHelp()
	printPeers(sess.Peers(), sess.UnreadCounts())

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Printf("[%s] > ", sess.State())
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, "/") {
			sendText(ctx, sess, line)
			continue
		}

		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		switch cmd {
		case "/quit", "/exit":
			return
		case "/help":
			printHelp()
		case "/peers":
			printPeers(sess.Peers(), sess.UnreadCounts())
		case "/search":
			printPeers(sess.SearchPeers(arg), sess.UnreadCounts())
		case "/select":
			selectPeer(ctx, sess, arg)
		case "/file":
			stageFile(sess, arg)
		case "/cancel":
			sess.CancelStaged()
			fmt.Println("staged file cleared")
		case "/send":
			sendText(ctx, sess, arg)
		case "/history":
			printConversation(sess)
		case "/unread":
			for id, n := range sess.UnreadCounts() {
				fmt.Printf("  %s: %d unread\n", id, n)
			}
		default:
			fmt.Println("unknown command; /help lists commands")
		}
	}
}

func printHelp() {
	fmt.Println(`commands:
  /peers            list peers with online markers
  /search <term>    filter peers by name or email
  /select <id>      open a conversation and load its history
  /file <path>      stage a file for the next send
  /cancel           drop the staged file
  /history          reprint the open conversation
  /unread           unread counts per peer
  /quit             exit
anything else is sent as a message to the selected peer`)
}

func printPeers(peers []models.Peer, unread map[string]int) {
	if len(peers) == 0 {
		fmt.Println("  (no peers)")
		return
	}
	for _, p := range peers {
		marker := " "
		if p.IsOnline {
			marker = "*"
		}
		line := fmt.Sprintf("  %s %s  %s <%s>", marker, p.ID, p.Name, p.Email)
		if n := unread[p.ID]; n > 0 {
			line += fmt.Sprintf("  (%d unread)", n)
		}
		fmt.Println(line)
	}
}

func selectPeer(ctx context.Context, sess *session.Session, peerID string) {
	if peerID == "" {
		fmt.Println("usage: /select <peer id>")
		return
	}
	if err := sess.SelectPeer(ctx, peerID); err != nil {
		fmt.Println("could not load conversation:", err)
		return
	}
	printConversation(sess)
}

func printConversation(sess *session.Session) {
	peer, ok := sess.SelectedPeer()
	if !ok {
		fmt.Println("no conversation selected")
		return
	}
	fmt.Printf("--- conversation with %s ---\n", peer.Name)
	for _, m := range sess.Conversation() {
		who := m.SenderID
		if who == sess.Self().ID {
			who = "me"
		}
		line := fmt.Sprintf("  [%s] %s: %s", m.Timestamp.Format("15:04"), who, m.Body)
		if m.FileURL != "" {
			line += fmt.Sprintf(" (attachment: %s)", m.FileURL)
		}
		fmt.Println(line)
	}
}

func stageFile(sess *session.Session, path string) {
	if path == "" {
		fmt.Println("usage: /file <path>")
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Println("could not read file:", err)
		return
	}
	name := filepath.Base(path)
	f := session.StagedFile{
		Name: name,
		MIME: mime.TypeByExtension(filepath.Ext(name)),
		Data: data,
	}
	if err := sess.StageFile(f); err != nil {
		fmt.Println("could not stage file:", err)
		return
	}
	fmt.Printf("staged %s (%d bytes); next send attaches it\n", name, len(data))
}

func sendText(ctx context.Context, sess *session.Session, text string) {
	err := sess.Send(ctx, text)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrNoPeerSelected):
		fmt.Println("select a peer first: /select <id>")
	case errors.Is(err, session.ErrNotConnected):
		fmt.Println("not connected; the message was not sent, retry shortly")
	case errors.Is(err, session.ErrNothingToSend):
		fmt.Println("nothing to send")
	default:
		fmt.Println("send failed:", err)
	}
}
