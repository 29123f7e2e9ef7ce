package client

import "time"

// KeyPressed signals typing activity. The first keypress after an idle
// period emits a typing-indicator with isTyping true; the matching false
// indicator is emitted only after the debounce window passes with no
// further activity, so a steady typist produces exactly one true per
// burst rather than one per keystroke.
func (c *Client) KeyPressed() {
	c.typingMu.Lock()
	defer c.typingMu.Unlock()

	if !c.typingActive {
		c.typingActive = true
		if err := c.api.Typing(c.ChatID, c.UserID, c.UserName, true); err != nil {
			c.typingActive = false
			return
		}
	}
	if c.typingTimer != nil {
		c.typingTimer.Stop()
	}
	c.typingTimer = time.AfterFunc(c.debounce, c.typingStopped)
}

func (c *Client) typingStopped() {
	c.typingMu.Lock()
	defer c.typingMu.Unlock()
	if !c.typingActive {
		return
	}
	c.typingActive = false
	_ = c.api.Typing(c.ChatID, c.UserID, c.UserName, false)
}

// SetDebounce overrides the typing debounce window. Tests use short
// windows; production keeps the configured default.
func (c *Client) SetDebounce(d time.Duration) {
	c.typingMu.Lock()
	defer c.typingMu.Unlock()
	c.debounce = d
}
