package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"assistant-home-control/api"
	"assistant-home-control/assistant"
	"assistant-home-control/audio_capture"
	"assistant-home-control/clients/ai_bot"
	"assistant-home-control/clients/device_api"
	"assistant-home-control/config"
	"assistant-home-control/device_registry"
	"assistant-home-control/device_state"
	"assistant-home-control/dispatcher"
	"assistant-home-control/interpreter"
	"assistant-home-control/listener"
	"assistant-home-control/logging"
	"assistant-home-control/notify"
	"assistant-home-control/recording"
	"assistant-home-control/speech_to_text"
	"assistant-home-control/wake_word"
)

var version = "dev"

const shutdownTimeout = 5 * time.Second

var (
	cfgPath   string
	modelPath string
	cfg       *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:               "homevoice",
		Short:             "Voice controlled relay boards",
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
		RunE:              run,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&modelPath, "model", "m", "", "whisper model file (overrides stt.model)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "probe-audio",
		Short: "List input devices and the sample rate that would be used",
		RunE:  probeAudio,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:               "version",
		Short:             "Print the version",
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	var err error

	cfg, err = config.Load(cfgPath)
	if err != nil {
		return err
	}

	if modelPath != "" {
		cfg.STT.Model = modelPath
	}

	_, err = logging.New(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	return err
}

func probeAudio(cmd *cobra.Command, args []string) error {
	capture, err := audio_capture.New(&audio_capture.Config{CandidateRates: cfg.Audio.SampleRates})
	if err != nil {
		return err
	}

	defer capture.Close()

	rate, frameSize, err := capture.Open(cfg.Audio.Device)
	if err != nil {
		return err
	}

	devices, err := capture.ListDevices()
	if err != nil {
		return err
	}

	for _, d := range devices {
		fmt.Printf("%3d  %-40s  in=%d  default=%.0fHz\n", d.Index, d.Name, d.MaxInputChannels, d.DefaultSampleRate)
	}

	fmt.Printf("selected rate %dHz, frame size %d samples\n", rate, frameSize)

	return nil
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load model
	model, err := whisper.New(cfg.STT.Model)
	if err != nil {
		return fmt.Errorf("error loading model: %w", err)
	}

	defer model.Close()

	whisperEngine, err := speech_to_text.New(&speech_to_text.Config{
		Model:    model,
		Language: cfg.STT.Language,
	})
	if err != nil {
		return fmt.Errorf("error with speech_to_text.New: %w", err)
	}

	sttEngine := whisperEngine
	if cfg.STT.Backend == config.STTBackendHTTP {
		sttEngine, err = speech_to_text.NewHTTP(&speech_to_text.HTTPConfig{
			Endpoint: cfg.STT.Endpoint,
			Language: cfg.STT.Language,
			Timeout:  cfg.STT.Timeout,
		})
		if err != nil {
			return fmt.Errorf("error with speech_to_text.NewHTTP: %w", err)
		}
	}

	detector, err := wake_word.New(&wake_word.Config{
		Phrase: cfg.WakeWord.Phrase,
		Engine: whisperEngine,
		Window: cfg.WakeWord.Window,
		Stride: cfg.WakeWord.Stride,
	})
	if err != nil {
		return fmt.Errorf("error with wake_word.New: %w", err)
	}

	capture, err := audio_capture.New(&audio_capture.Config{CandidateRates: cfg.Audio.SampleRates})
	if err != nil {
		return fmt.Errorf("error with audio_capture.New: %w", err)
	}

	defer capture.Close()

	if _, _, err := capture.Open(cfg.Audio.Device); err != nil {
		return fmt.Errorf("could not initialize audio: %w", err)
	}

	notifier, err := newNotifier(cfg.Notify)
	if err != nil {
		return fmt.Errorf("error starting notifier: %w", err)
	}

	defer notifier.Close()

	registry, err := device_registry.New(&device_registry.Config{
		FileSys: afero.NewOsFs(),
		Path:    cfg.Devices.File,
	})
	if err != nil {
		return fmt.Errorf("error with device_registry.New: %w", err)
	}

	deviceClient, err := device_api.NewClient(&device_api.Config{
		PollTimeout:    cfg.Devices.PollTimeout,
		ControlTimeout: cfg.Devices.ControlTimeout,
	})
	if err != nil {
		return fmt.Errorf("error with device_api.NewClient: %w", err)
	}

	store := device_state.NewStore()

	poller, err := device_state.NewPoller(&device_state.PollerConfig{
		Registry: registry,
		Client:   deviceClient,
		Store:    store,
		Interval: cfg.Devices.PollInterval,
	})
	if err != nil {
		return fmt.Errorf("error with device_state.NewPoller: %w", err)
	}

	if _, err := poller.PollAll(ctx); err != nil {
		log.Warn().Err(err).Msg("error initializing device states")
	}

	bot, err := ai_bot.NewClient(&ai_bot.Config{
		ApiHost: cfg.LLM.Endpoint,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})
	if err != nil {
		return fmt.Errorf("error with ai_bot.NewClient: %w", err)
	}

	interp, err := interpreter.New(&interpreter.Config{Bot: bot, Store: store})
	if err != nil {
		return fmt.Errorf("error with interpreter.New: %w", err)
	}

	disp, err := dispatcher.New(&dispatcher.Config{Client: deviceClient, Store: store, Notifier: notifier})
	if err != nil {
		return fmt.Errorf("error with dispatcher.New: %w", err)
	}

	archive := recording.NewNoop()
	if cfg.Archive.Enabled {
		archive, err = recording.New(&recording.Config{FileSys: afero.NewOsFs(), Dir: cfg.Archive.Dir})
		if err != nil {
			return fmt.Errorf("error with recording.New: %w", err)
		}
	}

	assist, err := assistant.New(&assistant.Config{
		STTEngine:   sttEngine,
		Registry:    registry,
		Interpreter: interp,
		Dispatcher:  disp,
		Notifier:    notifier,
		Archive:     archive,
	})
	if err != nil {
		return fmt.Errorf("error with assistant.New: %w", err)
	}

	listen, err := listener.New(&listener.Config{
		Capture:          capture,
		Detector:         detector,
		Handler:          assist,
		Notifier:         notifier,
		Threshold:        cfg.WakeWord.Threshold,
		SilenceThreshold: cfg.Recording.SilenceThreshold,
		SilenceDuration:  cfg.Recording.SilenceDuration,
		MaxRecording:     cfg.Recording.MaxDuration,
		IdleSleep:        listener.DefaultIdleSleep,
	})
	if err != nil {
		return fmt.Errorf("error with listener.New: %w", err)
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		poller.Run(ctx)

		return nil
	})

	if cfg.HTTP.Enabled {
		server, err := api.New(&api.Config{
			Address:    cfg.HTTP.Address,
			Store:      store,
			Registry:   registry,
			Assistant:  assist,
			Dispatcher: disp,
			Pipeline:   listen,
		})
		if err != nil {
			return fmt.Errorf("error with api.New: %w", err)
		}

		group.Go(server.Start)

		group.Go(func() error {
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			return server.Shutdown(shutdownCtx)
		})
	}

	group.Go(func() error {
		err := listen.ListenLoop(ctx)
		if err != nil {
			return fmt.Errorf("listen loop: %w", err)
		}

		return listen.Wait()
	})

	return group.Wait()
}

func newNotifier(c config.NotifyConfig) (notify.Interface, error) {
	switch c.Backend {
	case config.NotifyBackendMQTT:
		return notify.NewMQTT(&notify.MQTTConfig{
			Broker:      c.Broker,
			ClientID:    c.ClientID,
			Username:    c.Username,
			Password:    c.Password,
			TopicPrefix: c.TopicPrefix,
			QoS:         byte(c.QoS),
		})
	case config.NotifyBackendEmbedded:
		return notify.NewBroker(&notify.BrokerConfig{
			Address:     c.Listen,
			TopicPrefix: c.TopicPrefix,
		})
	}

	return notify.NewLog(), nil
}
