package main

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/voice"
)

func serveCMD() *cobra.Command {
	var addr, scriptPath string
	var pace time.Duration
	var hangup bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a scripted voice provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := loadScript(scriptPath)
			if err != nil {
				return err
			}
			mux := http.NewServeMux()
			mux.Handle("/call", &provider{script: script, pace: pace, hangup: hangup})
			mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte("ok"))
			})
			slog.Info("voice provider listening", "addr", addr, "lines", len(script))
			return http.ListenAndServe(addr, mux)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8090", "listen address")
	cmd.Flags().StringVar(&scriptPath, "script", "", "script file of \"role: text\" lines (default built-in setup script)")
	cmd.Flags().DurationVar(&pace, "pace", 500*time.Millisecond, "delay between scripted utterances")
	cmd.Flags().BoolVar(&hangup, "hangup", true, "end the call after the script")
	return cmd
}

var providerUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// provider plays a script to every call started on its socket.
type provider struct {
	script []line
	pace   time.Duration
	hangup bool
}

func (p *provider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := providerUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("provider upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var mu sync.Mutex
	write := func(f voice.Frame) error {
		mu.Lock()
		defer mu.Unlock()
		return conn.WriteJSON(f)
	}

	cancel := func() {}
	defer func() { cancel() }()

	for {
		var f voice.Frame
		if err := conn.ReadJSON(&f); err != nil {
			slog.Debug("provider connection closed", "error", err)
			return
		}

		switch f.Type {
		case voice.FrameStart:
			cancel()
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			name := ""
			if f.Assistant != nil {
				name = f.Assistant.Name
			}
			slog.Info("call started", "assistant", name, "variables", len(f.VariableValues))
			go p.play(ctx, write)
		case voice.FrameSend:
			if f.Message != nil {
				slog.Info("message received", "type", f.Message.Type, "content", f.Message.Content)
			}
		case voice.FrameStop:
			slog.Info("call stopped")
			return
		}
	}
}

func (p *provider) play(ctx context.Context, write func(voice.Frame) error) {
	if write(voice.Frame{Type: string(voice.EventCallStart)}) != nil {
		return
	}
	for _, l := range p.script {
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.pace):
		}
		frames := []voice.Frame{
			{Type: string(voice.EventSpeechStart), Role: l.Role},
			{Type: string(voice.EventTranscript), Role: l.Role, TranscriptType: "final", Transcript: l.Text},
			{Type: string(voice.EventSpeechEnd), Role: l.Role},
		}
		for _, f := range frames {
			if write(f) != nil {
				return
			}
		}
	}
	if !p.hangup {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(p.pace):
		write(voice.Frame{Type: string(voice.EventCallEnd)})
	}
}
