package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/alkime/voicecollector/internal/audio"
	"github.com/alkime/voicecollector/internal/collector"
	"github.com/alkime/voicecollector/internal/dataset"
	"github.com/alkime/voicecollector/internal/keyring"
	"github.com/alkime/voicecollector/internal/logger"
	"github.com/alkime/voicecollector/internal/session"
	"github.com/alkime/voicecollector/internal/tui"
	"github.com/alkime/voicecollector/internal/tui/workflow"
	"github.com/alkime/voicecollector/internal/workdir"
	"github.com/alkime/voicecollector/pkg/uictl"
	tea "github.com/charmbracelet/bubbletea"
)

// CLI defines the voice command structure.
type CLI struct {
	// Default command (runs when no subcommand given)
	Collect CollectCmd `cmd:"" default:"withargs" help:"Launch the recording wizard"`

	// Subcommands
	Devices  DevicesCmd  `cmd:"" help:"List available audio devices"`
	Manifest ManifestCmd `cmd:"" help:"Inspect stored recordings"`
	Config   ConfigCmd   `cmd:"" help:"Manage configuration"`
}

// CollectCmd runs the wizard in the terminal.
type CollectCmd struct {
	DataDir         string        `flag:"" env:"DATA_DIR" help:"Data directory (default: ~/Documents/VoiceCollector)"`
	SamplesDir      string        `flag:"" env:"SAMPLES_DIR" default:"samples" help:"Reference samples, relative to the data directory"`
	MaxDuration     time.Duration `flag:"" default:"30s" help:"Max take length"`
	DryRun          bool          `flag:"" env:"DRY_RUN" help:"Log recordings instead of storing them"`
	DryRunDelay     time.Duration `flag:"" env:"DRY_RUN_DELAY" default:"1500ms" help:"Simulated upload time in dry-run mode"`
	UploadAttempts  uint          `flag:"" env:"UPLOAD_ATTEMPTS" default:"3" help:"Attempts per upload"`
	Transcribe      bool          `flag:"" env:"TRANSCRIBE" help:"Store a transcript with each recording"`
	LogLevel        string        `flag:"" env:"LOG_LEVEL" default:"info" help:"Log level for the log file"`
	OpenAIAPIKey    string        `flag:"" env:"OPENAI_API_KEY" help:"OpenAI API key for sample synthesis and transcription"`
	AnthropicAPIKey string        `flag:"" env:"ANTHROPIC_API_KEY" help:"Anthropic API key for pronunciation hints"`
}

// Run executes the collect command.
//
//nolint:funlen // CLI command with multiple setup steps
func (c *CollectCmd) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir, err := workdir.Resolve(c.DataDir)
	if err != nil {
		return fmt.Errorf("failed to resolve data directory: %w", err)
	}

	if err := dir.Prep(); err != nil {
		return fmt.Errorf("failed to prepare data directory: %w", err)
	}

	// The TUI owns the terminal, so logs go to a file.
	log, logFile, err := logger.SetupFileLogger(dir.Log(), logger.ParseLevel(c.LogLevel))
	if err != nil {
		return err
	}
	defer logFile.Close()

	retryConf := dataset.DefaultRetryConfig()
	retryConf.Attempts = c.UploadAttempts

	svc, err := collector.Open(collector.Options{
		DataDir:         string(dir),
		SamplesDir:      c.SamplesDir,
		DryRun:          c.DryRun,
		DryRunDelay:     c.DryRunDelay,
		Retry:           retryConf,
		OpenAIAPIKey:    keyring.Resolve(keyring.OpenAI, c.OpenAIAPIKey),
		AnthropicAPIKey: keyring.Resolve(keyring.Anthropic, c.AnthropicAPIKey),
		Transcribe:      c.Transcribe,
		Logger:          log,
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	mic := audio.NewMicrophone(audio.MicrophoneConfig{MaxDuration: c.MaxDuration},
		audio.WithMicrophoneLogger(log))
	speaker := audio.NewSpeaker(svc.Samples, audio.WithSpeakerLogger(log))

	wizard, err := session.New(session.Config{
		Capturer: mic,
		Player:   speaker,
		Uploader: svc.Uploader,
		Logger:   log,
	})
	if err != nil {
		return err
	}
	defer wizard.Close()

	deps := workflow.Deps{
		Ctx:    ctx,
		Wizard: wizard,
		Levels: mic,
		Elapsed: uictl.CappedDialFunc[time.Duration](func() (time.Duration, time.Duration) {
			return mic.Elapsed(), mic.MaxDuration()
		}),
	}
	if svc.Hinter != nil {
		deps.Hints = svc.Hinter
	}

	log.Info("voice collector started", "session", wizard.ID(), "dataDir", string(dir))

	p := tea.NewProgram(tui.New(tui.Config{Deps: deps, Cancel: cancel}))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to start TUI: %w", err)
	}

	fmt.Println("\nfinished. bye!")

	return nil
}

// DevicesCmd lists available audio devices.
type DevicesCmd struct{}

// Run executes the devices command.
func (dcmd *DevicesCmd) Run() error {
	slog.Info("Enumerating audio devices...")

	adev := audio.NewDevice(nil)
	devices, err := adev.EnumerateDevices(context.Background())
	if err != nil {
		return fmt.Errorf("failed to enumerate audio devices: %w", err)
	}

	for _, dev := range devices {
		slog.Info("Audio Device",
			"name", dev.Name,
			"isDefault", dev.IsDefault,
			"formatCount", dev.FormatCount,
			"formats", dev.Formats,
		)
	}

	return nil
}

// ManifestCmd groups manifest subcommands.
type ManifestCmd struct {
	List   ManifestListCmd   `cmd:"" default:"withargs" help:"List recordings, newest first"`
	Counts ManifestCountsCmd `cmd:"" help:"Count recordings per drug and gender"`
}

// storeFlags locate the manifest.
type storeFlags struct {
	DataDir string `flag:"" env:"DATA_DIR" help:"Data directory (default: ~/Documents/VoiceCollector)"`
}

func (f storeFlags) open() (*dataset.Manifest, error) {
	dir, err := workdir.Resolve(f.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}

	return dataset.OpenManifest(dir.Manifest())
}

// ManifestListCmd lists stored recordings.
type ManifestListCmd struct {
	Store  storeFlags `embed:""`
	Drug   string     `flag:"" help:"Only this drug"`
	Gender string     `flag:"" help:"Only this gender (Male or Female)"`
	Limit  int        `flag:"" default:"20" help:"Max rows"`
}

// Run executes the list command.
func (c *ManifestListCmd) Run() error {
	filter := dataset.Filter{Limit: c.Limit}

	if c.Drug != "" {
		drug, ok := session.LookupDrug(c.Drug)
		if !ok {
			return fmt.Errorf("unknown drug %q", c.Drug)
		}
		filter.Drug = drug
	}

	if c.Gender != "" {
		g, ok := session.ParseGender(c.Gender)
		if !ok {
			return fmt.Errorf("unknown gender %q", c.Gender)
		}
		filter.Gender = string(g)
	}

	m, err := c.Store.open()
	if err != nil {
		return err
	}
	defer m.Close()

	recs, err := m.List(context.Background(), filter)
	if err != nil {
		return err
	}

	if len(recs) == 0 {
		fmt.Println("no recordings yet")
		return nil
	}

	fmt.Println(renderRecords(recs))

	return nil
}

// ManifestCountsCmd shows coverage per drug and gender.
type ManifestCountsCmd struct {
	Store storeFlags `embed:""`
}

// Run executes the counts command.
func (c *ManifestCountsCmd) Run() error {
	m, err := c.Store.open()
	if err != nil {
		return err
	}
	defer m.Close()

	counts, err := m.Counts(context.Background())
	if err != nil {
		return err
	}

	fmt.Println(renderCounts(counts))

	return nil
}

// ConfigCmd groups configuration-related subcommands.
type ConfigCmd struct {
	SetKey    SetKeyCmd    `cmd:"" help:"Store an API key in system keychain"`
	DeleteKey DeleteKeyCmd `cmd:"" name:"delete-key" help:"Remove an API key from system keychain"`
	ListKeys  ListKeysCmd  `cmd:"" name:"list-keys" help:"Show which API keys are configured"`
}

// SetKeyCmd stores an API key in the system keychain.
type SetKeyCmd struct {
	Service string `arg:"" enum:"openai,anthropic" help:"Service name (openai or anthropic)"`
	Secret  string `arg:"" help:"API key value"`
}

// Run executes the set-key command.
func (c *SetKeyCmd) Run() error {
	if strings.TrimSpace(c.Secret) == "" {
		return errors.New("API key cannot be empty")
	}

	apiKey, err := keyring.APIKeyFromServiceName(c.Service)
	if err != nil {
		return fmt.Errorf("invalid service: %w", err)
	}

	if err := keyring.Set(apiKey, c.Secret); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}

	fmt.Printf("%s API key stored in keychain\n", c.Service)

	return nil
}

// DeleteKeyCmd removes an API key from the system keychain.
type DeleteKeyCmd struct {
	Service string `arg:"" enum:"openai,anthropic" help:"Service name (openai or anthropic)"`
}

// Run executes the delete-key command.
func (c *DeleteKeyCmd) Run() error {
	apiKey, err := keyring.APIKeyFromServiceName(c.Service)
	if err != nil {
		return fmt.Errorf("invalid service: %w", err)
	}

	if err := keyring.Delete(apiKey); err != nil {
		return fmt.Errorf("failed to delete API key: %w", err)
	}

	fmt.Printf("%s API key removed from keychain\n", c.Service)

	return nil
}

// ListKeysCmd shows which API keys are configured.
type ListKeysCmd struct{}

// Run executes the list-keys command.
//
//nolint:unparam // error return required by Kong interface
func (c *ListKeysCmd) Run() error {
	allSet := true

	for _, apiKey := range keyring.AllAPIKeys() {
		if keyring.IsSet(apiKey) {
			fmt.Printf("%s: configured\n", apiKey.DisplayName())
		} else {
			fmt.Printf("%s: not set\n", apiKey.DisplayName())
			allSet = false
		}
	}

	if !allSet {
		fmt.Println("\nRun 'voice config set-key <service> <key>' to enable hints, synthesis and transcription.")
	}

	return nil
}

func main() {
	// Set up text-based logger for CLI output
	//nolint:exhaustruct // Using default values for other HandlerOptions fields
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))

	cli := &CLI{} //nolint:exhaustruct // Kong fills in command fields
	ctx := kong.Parse(cli,
		kong.Name("voice"),
		kong.Description("Collect drug name pronunciations from volunteers."),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
	os.Exit(0)
}
