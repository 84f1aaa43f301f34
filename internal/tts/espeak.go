//go:build espeak

package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <espeak-ng/speak_lib.h>

static int
espeak_say(const char *text, const char *voice)
{
	if (!text || !voice)
	{ return -1; }

	if (espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0) < 0)
	{ return -2; }

	espeak_VOICE specs = { .languages = voice };
	espeak_SetVoiceByProperties(&specs);

	espeak_Synth(text, 500, 0, 0, 0, espeakCHARS_AUTO, NULL, NULL);
	espeak_Synchronize();
	espeak_Terminate();

	return 0;
}
*/
import "C"

import (
	"context"
	"fmt"
	"strings"
	"unsafe"
)

const EspeakAvailable = true

// Espeak speaks directly through the sound card; out is ignored and the
// caller skips playback.
type Espeak struct {
	Language string
}

func (e *Espeak) Synthesize(_ context.Context, text, _ string) error {
	if strings.TrimSpace(text) == "" {
		return ErrNothingToSay
	}

	lang := e.Language
	if lang == "" || lang == "auto" {
		lang = "en"
	}

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	cvoice := C.CString(lang)
	defer C.free(unsafe.Pointer(cvoice))

	if rc := C.espeak_say(ctext, cvoice); rc != 0 {
		return fmt.Errorf("espeak failed: %d", int(rc))
	}
	return nil
}

func (e *Espeak) Direct() bool { return true }
