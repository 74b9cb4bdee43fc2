package assistant

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"assistant-home-control/device_registry"
	"assistant-home-control/dispatcher"
	"assistant-home-control/interpreter"
	"assistant-home-control/notify"
	"assistant-home-control/recording"
	"assistant-home-control/speech_to_text"
)

const (
	NoDevicesReply   = "No devices added yet."
	FailureReply     = "Sorry, I had trouble processing that."
	UnreachableReply = "Sorry, I couldn't reach the device."
)

type assistantImpl struct {
	sttEngine   speech_to_text.Interface
	registry    device_registry.Interface
	interpreter interpreter.Interface
	dispatcher  dispatcher.Interface
	notifier    notify.Interface
	archive     recording.Interface
}

type Config struct {
	STTEngine   speech_to_text.Interface
	Registry    device_registry.Interface
	Interpreter interpreter.Interface
	Dispatcher  dispatcher.Interface
	Notifier    notify.Interface
	// Archive is optional.
	Archive recording.Interface
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.STTEngine == nil {
		return nil, fmt.Errorf("sttEngine is nil")
	}

	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is nil")
	}

	if cfg.Interpreter == nil {
		return nil, fmt.Errorf("interpreter is nil")
	}

	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is nil")
	}

	if cfg.Notifier == nil {
		return nil, fmt.Errorf("notifier is nil")
	}

	archive := cfg.Archive
	if archive == nil {
		archive = recording.NewNoop()
	}

	return &assistantImpl{
		sttEngine:   cfg.STTEngine,
		registry:    cfg.Registry,
		interpreter: cfg.Interpreter,
		dispatcher:  cfg.Dispatcher,
		notifier:    cfg.Notifier,
		archive:     archive,
	}, nil
}

func (a *assistantImpl) HandleUtterance(ctx context.Context, frames [][]int16, sampleRate int) error {
	if name, err := a.archive.Archive(frames, sampleRate); err != nil {
		log.Warn().Err(err).Msg("error archiving utterance")
	} else if name != "" {
		log.Info().Str("file", name).Msg("utterance archived")
	}

	text, err := a.sttEngine.Transcribe(ctx, frames, sampleRate)
	if err != nil {
		log.Warn().Err(err).Msg("could not transcribe command")

		return err
	}

	log.Info().Str("text", text).Msg("command transcribed")

	a.notifier.Publish(notify.NewMessage(notify.SenderUser, text))

	_, err = a.HandleText(ctx, text)

	return err
}

// HandleText runs one command through interpretation and dispatch. Failures
// past transcription are answered with a reply rather than returned; the
// error is only for a context that was cancelled underneath it.
func (a *assistantImpl) HandleText(ctx context.Context, text string) (*Outcome, error) {
	outcome := &Outcome{Text: text}

	devices, err := a.registry.List()
	if err != nil {
		log.Error().Err(err).Msg("error reading device registry")
	}

	if len(devices) == 0 {
		outcome.Reply = NoDevicesReply
		a.reply(outcome.Reply)

		return outcome, nil
	}

	deviceInfo := a.interpreter.BuildContext(devices)

	decision, err := a.interpreter.Interpret(ctx, text, deviceInfo)
	if err != nil {
		log.Error().Err(err).Str("text", text).Msg("error interpreting command")

		outcome.Reply = FailureReply
		a.reply(outcome.Reply)

		return outcome, ctx.Err()
	}

	outcome.Reconciliation = a.interpreter.Reconcile(decision.Actions, devices)
	outcome.Reply = interpreter.ReplyFor(decision, outcome.Reconciliation)

	log.Info().
		Int("proposed", outcome.Reconciliation.Proposed).
		Int("dispatching", len(outcome.Reconciliation.Actions)).
		Int("satisfied", len(outcome.Reconciliation.Satisfied)).
		Int("dropped", len(outcome.Reconciliation.Dropped)).
		Msg("actions reconciled")

	if len(outcome.Reconciliation.Actions) > 0 {
		outcome.Results = a.dispatcher.DispatchAll(ctx, outcome.Reconciliation.Actions)

		if !dispatcher.AnySucceeded(outcome.Results) {
			log.Warn().Int("failed", len(outcome.Results)).Msg("no relay could be switched")

			outcome.Reply = UnreachableReply
		}
	}

	// the reply goes out before observers are told to refresh
	a.reply(outcome.Reply)
	a.dispatcher.Refresh(outcome.Results)

	return outcome, nil
}

func (a *assistantImpl) reply(text string) {
	log.Info().Str("reply", text).Msg("assistant reply")

	a.notifier.Publish(notify.NewMessage(notify.SenderAssistant, text))
}
