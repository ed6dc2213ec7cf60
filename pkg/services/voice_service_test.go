package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dskvich/ai-chat-server/pkg/chatgpt"
	"github.com/dskvich/ai-chat-server/pkg/domain"
)

type stubTranscriber struct {
	result *chatgpt.Transcription
	err    error
}

func (s *stubTranscriber) Transcribe(_ context.Context, _ []byte, _ string) (*chatgpt.Transcription, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubSynthesizer struct {
	gotInput string
	gotVoice string
}

func (s *stubSynthesizer) Synthesize(_ context.Context, input, voice string) ([]byte, error) {
	s.gotInput = input
	s.gotVoice = voice
	return []byte("mp3-bytes"), nil
}

type stubAuditStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newStubAuditStore() *stubAuditStore {
	return &stubAuditStore{blobs: map[string][]byte{}}
}

func (s *stubAuditStore) Put(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	return nil
}

func TestTranscribe(t *testing.T) {
	store := newStubAuditStore()
	v := NewVoiceService(
		&stubTranscriber{result: &chatgpt.Transcription{Text: "hello there", DurationSeconds: 2.4}},
		&stubSynthesizer{},
		store,
	)

	got := v.Transcribe(context.Background(), []byte("ogg-bytes"), "memo.ogg")
	if got != "hello there" {
		t.Errorf("Transcribe = %q, want %q", got, "hello there")
	}

	var auditKey string
	for key := range store.blobs {
		if strings.HasPrefix(key, "transcribe-") {
			auditKey = key
		}
	}
	if auditKey == "" {
		t.Fatal("expected a transcription audit record")
	}

	var log domain.TranscribeLog
	if err := json.Unmarshal(store.blobs[auditKey], &log); err != nil {
		t.Fatalf("unmarshaling audit log: %v", err)
	}
	if log.Text != "hello there" || log.Filename != "memo.ogg" {
		t.Errorf("audit log = %+v", log)
	}
	if log.Cost != 3*domain.WhisperPricePerSecond {
		t.Errorf("cost = %v, want duration rounded up to whole seconds", log.Cost)
	}
}

func TestTranscribeFailureYieldsEmptyText(t *testing.T) {
	v := NewVoiceService(
		&stubTranscriber{err: errors.New("provider down")},
		&stubSynthesizer{},
		newStubAuditStore(),
	)

	if got := v.Transcribe(context.Background(), []byte("ogg-bytes"), "memo.ogg"); got != "" {
		t.Errorf("Transcribe = %q, want empty on failure", got)
	}
}

func TestSynthesizeWrapsLanguage(t *testing.T) {
	synth := &stubSynthesizer{}
	v := NewVoiceService(&stubTranscriber{}, synth, newStubAuditStore())

	audio, err := v.Synthesize(context.Background(), "hello", "de", domain.GenerationOptions{VoiceGender: "male"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(audio) == 0 {
		t.Error("expected audio bytes")
	}
	if synth.gotInput != `<speak xml:lang="de">hello</speak>` {
		t.Errorf("input = %q", synth.gotInput)
	}
	if synth.gotVoice != "onyx" {
		t.Errorf("voice = %q, want onyx", synth.gotVoice)
	}
}

func TestSynthesizeWithoutLanguage(t *testing.T) {
	synth := &stubSynthesizer{}
	v := NewVoiceService(&stubTranscriber{}, synth, newStubAuditStore())

	if _, err := v.Synthesize(context.Background(), "hello", "", domain.GenerationOptions{}); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if synth.gotInput != "hello" {
		t.Errorf("input = %q, want the bare text", synth.gotInput)
	}
	if synth.gotVoice != domain.DefaultVoice {
		t.Errorf("voice = %q, want %q", synth.gotVoice, domain.DefaultVoice)
	}
}
