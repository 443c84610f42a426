package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/voicerelay/domain"
)

var (
	serverAddr string
	inputPath  string
	outputPath string
	chunkSize  int
	chunkDelay time.Duration
	linger     time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "audioclient",
	Short: "Stream a raw PCM file through the voice relay",
	Long: `audioclient streams 16-bit mono PCM to the relay's /ws endpoint as audio
messages, prints transcripts and turn events, and writes the returned audio
to a file.

Example:
  audioclient -i question.pcm -o answer.pcm --addr localhost:8765`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&serverAddr, "addr", "localhost:8765", "relay host:port")
	rootCmd.Flags().StringVarP(&inputPath, "input", "i", "", "raw PCM file to send (16 kHz)")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "response.pcm", "file for received PCM (24 kHz)")
	rootCmd.Flags().IntVar(&chunkSize, "chunk-size", 3200, "bytes per audio message")
	rootCmd.Flags().DurationVar(&chunkDelay, "chunk-delay", 100*time.Millisecond, "delay between audio messages")
	rootCmd.Flags().DurationVar(&linger, "linger", 10*time.Second, "how long to wait for responses after sending")
	_ = rootCmd.MarkFlagRequired("input")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	audio, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if chunkSize <= 0 {
		return errors.New("chunk-size must be positive")
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	u := url.URL{Scheme: "ws", Host: serverAddr, Path: "/ws"}
	logger.Info("Connecting", zap.String("url", u.String()))

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer c.Close()

	done := make(chan struct{})
	go readResponses(c, out, logger, done)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	if err := sendAudio(c, audio, interrupt, logger); err != nil {
		return err
	}

	select {
	case <-done:
	case <-interrupt:
		logger.Info("Interrupted")
	case <-time.After(linger):
	}

	// Cleanly close the connection and give the relay a moment to tear down.
	_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	select {
	case <-done:
	case <-time.After(time.Second):
	}
	return nil
}

func sendAudio(c *websocket.Conn, audio []byte, interrupt <-chan os.Signal, logger *zap.Logger) error {
	total := (len(audio) + chunkSize - 1) / chunkSize
	logger.Info("Sending audio", zap.Int("bytes", len(audio)), zap.Int("chunks", total))

	start := time.Now()
	for i := 0; i < total; i++ {
		end := (i + 1) * chunkSize
		if end > len(audio) {
			end = len(audio)
		}

		msg := domain.AudioMessage(audio[i*chunkSize : end])
		if err := c.WriteJSON(msg); err != nil {
			return fmt.Errorf("send chunk %d: %w", i, err)
		}

		select {
		case <-interrupt:
			return nil
		case <-time.After(chunkDelay):
		}
	}

	if err := c.WriteJSON(domain.WireMessage{Type: domain.MessageTypeEnd}); err != nil {
		return fmt.Errorf("send end: %w", err)
	}
	logger.Info("Finished sending audio", zap.Duration("elapsed", time.Since(start)))
	return nil
}

func readResponses(c *websocket.Conn, out *os.File, logger *zap.Logger, done chan<- struct{}) {
	defer close(done)

	var received int
	for {
		var msg domain.WireMessage
		if err := c.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.Info("Connection ended", zap.Error(err))
			}
			logger.Info("Audio written", zap.String("file", outputPath), zap.Int("bytes", received))
			return
		}

		switch msg.Type {
		case domain.MessageTypeReady:
			logger.Info("Relay ready")
		case domain.MessageTypeAudio:
			data, err := msg.AudioPayload()
			if err != nil {
				logger.Warn("Bad audio payload", zap.Error(err))
				continue
			}
			if _, err := out.Write(data); err != nil {
				logger.Error("Failed to write audio", zap.Error(err))
				return
			}
			received += len(data)
		case domain.MessageTypeText:
			fmt.Printf("assistant: %s\n", msg.Data)
		case domain.MessageTypeInterrupted:
			fmt.Println("-- interrupted --")
		case domain.MessageTypeTurnComplete:
			fmt.Println("-- turn complete --")
		default:
			logger.Debug("Unhandled message", zap.String("type", string(msg.Type)))
		}
	}
}
