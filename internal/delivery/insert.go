package delivery

// TriggerChar opens the in-page picker when typed into a monitored input.
const TriggerChar = '/'

// InsertAtTrigger returns text with content inserted for the trigger.
//
// The last "/" strictly before caret is replaced by content plus one space,
// and the new caret sits right after that space. Without a "/" before the
// caret, content plus a space is inserted at the caret and nothing is
// removed. caret counts runes and is clamped to the text.
//
//	InsertAtTrigger("hello /", 7, "X")  →  "hello X ", 8
func InsertAtTrigger(text string, caret int, content string) (string, int) {
	runes := []rune(text)
	caret = min(max(caret, 0), len(runes))
	insert := []rune(content + " ")

	start, end := caret, caret
	for i := caret - 1; i >= 0; i-- {
		if runes[i] == TriggerChar {
			start, end = i, i+1
			break
		}
	}

	out := make([]rune, 0, len(runes)-(end-start)+len(insert))
	out = append(out, runes[:start]...)
	out = append(out, insert...)
	out = append(out, runes[end:]...)
	return string(out), start + len(insert)
}
