package controller

import (
	"sync"

	"github.com/gdamore/tcell/v2"
)

// tcell reports every printable key as KeyRune, so runes used as shortcuts get
// their own Key values above tcell's range. That lets a single map[tcell.Key]
// hold both kinds of shortcut.
const keyRuneBase tcell.Key = 1000

// These constants refer to the rune shortcuts used by the app.
const (
	KeyA tcell.Key = keyRuneBase + iota
	KeyB
	KeyE
	KeyG
	KeyM
	KeyN
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyX
	KeySlash
	KeyH
	KeyL
	KeyP
)

var runeKeys = map[rune]tcell.Key{
	'a': KeyA,
	'b': KeyB,
	'e': KeyE,
	'g': KeyG,
	'm': KeyM,
	'n': KeyN,
	'q': KeyQ,
	'r': KeyR,
	's': KeyS,
	't': KeyT,
	'x': KeyX,
	'/': KeySlash,
	'h': KeyH,
	'l': KeyL,
	'p': KeyP,
}

var initKeysOnce sync.Once

// initKeys registers display names for the rune keys so headers can use tcell.KeyNames.
func initKeys() {
	initKeysOnce.Do(func() {
		for r, key := range runeKeys {
			tcell.KeyNames[key] = string(r)
		}
	})
}

// AsKey maps an event to the key used in the event maps.
func AsKey(evt *tcell.EventKey) tcell.Key {
	if evt.Key() != tcell.KeyRune {
		return evt.Key()
	}

	if key, ok := runeKeys[evt.Rune()]; ok {
		return key
	}

	return evt.Key()
}

// keyName is the label shown for key in the shortcut headers.
func keyName(key tcell.Key) string {
	if name, ok := tcell.KeyNames[key]; ok {
		return name
	}

	return "?"
}
