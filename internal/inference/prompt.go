package inference

// FormatPrompt renders a single user turn followed by the assistant cue.
func FormatPrompt(userLabel, prompt, assistantLabel string) string {
	return userLabel + ": " + prompt + "\n\n" + assistantLabel + ":"
}
