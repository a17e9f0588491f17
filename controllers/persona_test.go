package controller

import (
	"strings"
	"testing"

	"mailpilot/models"
)

func TestPersonaSystemPrompt(t *testing.T) {
	base := "You write emails."

	if got := personaSystemPrompt(base, nil); got != base {
		t.Errorf("prompt without persona = %q, want base unchanged", got)
	}

	persona := &models.Persona{
		Description: "Warm but brief account manager",
		ToneSettings: &models.ToneSettings{
			Formality:  30,
			Enthusiasm: 80,
			Brevity:    90,
			Empathy:    60,
		},
		WritingStyleProfile: map[string]interface{}{
			"greetings": []interface{}{"Hey there"},
		},
	}

	got := personaSystemPrompt(base, persona)
	if !strings.HasPrefix(got, base) {
		t.Errorf("prompt does not start with base: %q", got)
	}
	for _, want := range []string{
		"Warm but brief account manager",
		"formality 30/100",
		"enthusiasm 80/100",
		"brevity 90/100",
		"empathy 60/100",
		"Hey there",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestValidToneSettings(t *testing.T) {
	if !validToneSettings(nil) {
		t.Error("nil tone settings should be valid")
	}
	if !validToneSettings(&models.ToneSettings{Formality: 0, Enthusiasm: 100, Brevity: 50, Empathy: 50}) {
		t.Error("boundary values should be valid")
	}
	if validToneSettings(&models.ToneSettings{Formality: 101}) {
		t.Error("formality above 100 should be invalid")
	}
	if validToneSettings(&models.ToneSettings{Empathy: -1}) {
		t.Error("negative empathy should be invalid")
	}
}

func TestStripCodeFence(t *testing.T) {
	plain := `{"tone":"warm"}`
	if got := stripCodeFence(plain); got != plain {
		t.Errorf("stripCodeFence(plain) = %q", got)
	}

	fenced := "```json\n{\"tone\":\"warm\"}\n```"
	if got := stripCodeFence(fenced); got != plain {
		t.Errorf("stripCodeFence(fenced) = %q, want %q", got, plain)
	}

	bare := "```\n{\"tone\":\"warm\"}\n```"
	if got := stripCodeFence(bare); got != plain {
		t.Errorf("stripCodeFence(bare fence) = %q, want %q", got, plain)
	}
}

func TestToneSettingsFromProfile(t *testing.T) {
	profile := map[string]interface{}{
		"formality":  float64(70),
		"enthusiasm": float64(40),
		"brevity":    float64(55),
		"empathy":    float64(65),
	}
	got := toneSettingsFromProfile(profile)
	if got == nil {
		t.Fatal("expected tone settings from a complete profile")
	}
	if got.Formality != 70 || got.Enthusiasm != 40 || got.Brevity != 55 || got.Empathy != 65 {
		t.Errorf("tone settings = %+v", got)
	}

	if toneSettingsFromProfile(map[string]interface{}{"formality": float64(70)}) != nil {
		t.Error("incomplete profile should yield no tone settings")
	}
	if toneSettingsFromProfile(map[string]interface{}{
		"formality": float64(700), "enthusiasm": float64(40), "brevity": float64(55), "empathy": float64(65),
	}) != nil {
		t.Error("out-of-range profile should yield no tone settings")
	}
}
