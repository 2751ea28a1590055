package hydrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"
)

type settings struct {
	TTL      string   `json:"ttl"`
	MaxDepth int      `json:"max_depth"`
	Tags     []string `json:"tags"`
}

func TestDecodeStructWithHooks(t *testing.T) {
	splitTags := func(_ Context, payload map[string]any) (map[string]any, error) {
		raw, ok := payload["tags"].(string)
		if !ok {
			return payload, nil
		}
		payload["tags"] = strings.Split(raw, ",")
		return payload, nil
	}
	validate := func(ctx Context, s *settings) error {
		if _, err := time.ParseDuration(s.TTL); err != nil {
			return fmt.Errorf("%s: %w", ctx.Source, err)
		}
		return nil
	}

	decoder := NewDecoder[settings](
		WithPreHook[settings](splitTags),
		WithPostHook[settings](validate),
	)

	input := map[string]any{"ttl": "30s", "max_depth": 8, "tags": "a,b"}
	got, err := decoder.Decode(Context{Source: "config"}, input)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := settings{TTL: "30s", MaxDepth: 8, Tags: []string{"a", "b"}}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("want %#v got %#v", want, got)
	}
	if input["tags"] != "a,b" {
		t.Fatalf("expected input payload untouched, got %#v", input["tags"])
	}

	_, err = decoder.Decode(Context{Source: "config"}, map[string]any{"ttl": "soon"})
	if err == nil || !strings.Contains(err.Error(), "post-hook") {
		t.Fatalf("expected post-hook error, got %v", err)
	}
}

func TestDecodeDisallowUnknownFields(t *testing.T) {
	decoder := NewDecoder[settings](WithDisallowUnknownFields[settings]())
	_, err := decoder.Decode(Context{Source: "config"}, map[string]any{"bogus": true})
	if err == nil || !strings.Contains(err.Error(), "unknown field") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestDecodeNilPayload(t *testing.T) {
	decoder := NewDecoder[settings]()
	if _, err := decoder.Decode(Context{Source: "config"}, nil); err == nil {
		t.Fatalf("expected error for nil payload")
	}
}

func TestDecodeBytesKeepsNumbers(t *testing.T) {
	decoder := NewDecoder[map[string]any](WithUseNumber[map[string]any]())
	got, err := decoder.DecodeBytes(Context{Source: "account:E1"}, []byte(`{"id":"E1","big":12345678901234567890}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	num, ok := got["big"].(json.Number)
	if !ok || num.String() != "12345678901234567890" {
		t.Fatalf("expected json.Number, got %#v", got["big"])
	}
}

func TestDecodeBytesRejectsNonObject(t *testing.T) {
	decoder := NewDecoder[map[string]any]()
	cases := map[string]string{
		"array":  `[1,2]`,
		"scalar": `"x"`,
		"empty":  `   `,
		"broken": `{"a":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := decoder.DecodeBytes(Context{Source: "test"}, []byte(body)); err == nil {
				t.Fatalf("expected error for %q", body)
			}
		})
	}
}

func TestCustomDecoderErrorWraps(t *testing.T) {
	sentinel := errors.New("nope")
	decoder := NewDecoder[settings](WithCustomDecoder[settings](func(Context, map[string]any) (settings, error) {
		return settings{}, sentinel
	}))
	_, err := decoder.Decode(Context{Source: "config", Path: "cache"}, map[string]any{})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
	if !strings.Contains(err.Error(), "config:cache") {
		t.Fatalf("expected context label in error, got %v", err)
	}
}
