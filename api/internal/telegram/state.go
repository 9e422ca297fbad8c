package telegram

import "sync"

var wordMode sync.Map // chatID -> bool

func toggleWordMode(chatID int64) bool {
	if _, loaded := wordMode.LoadAndDelete(chatID); loaded {
		return false
	}
	wordMode.Store(chatID, true)
	return true
}

func isWordMode(chatID int64) bool {
	_, ok := wordMode.Load(chatID)
	return ok
}
