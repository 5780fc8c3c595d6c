package notify

import (
	"unicode/utf8"
)

// MessageBatcher packs formatted event blocks into messages that respect the
// transport's size limit without splitting a block across two messages.
type MessageBatcher struct {
	maxLength int
}

// NewMessageBatcher creates a batcher with the given character budget per
// message. Non-positive budgets fall back to the Telegram-safe default.
func NewMessageBatcher(maxLength int) *MessageBatcher {
	if maxLength <= 0 {
		maxLength = 3800
	}
	return &MessageBatcher{maxLength: maxLength}
}

// MaxLength returns the configured character budget.
func (b *MessageBatcher) MaxLength() int {
	return b.maxLength
}

// BuildBatches greedily packs blocks under the budget. Every batch starts
// with the header and closes with the footer; blocks within a batch are
// joined by the divider. When appending the next block would push the batch
// past the budget the batch is closed and the block opens a new one. A block
// that alone exceeds the budget still ships as its own batch rather than
// being split. No blocks, no batches.
func (b *MessageBatcher) BuildBatches(header string, blocks []string) []string {
	if len(blocks) == 0 {
		return nil
	}

	var batches []string
	current := header
	packedBlocks := 0

	for _, block := range blocks {
		chunk := block
		if packedBlocks > 0 {
			chunk = messageDivider + block
		}

		if packedBlocks > 0 && characterCount(current)+characterCount(chunk)+characterCount(messageFooter) > b.maxLength {
			batches = append(batches, current+messageFooter)
			current = header + block
			packedBlocks = 1
			continue
		}

		current += chunk
		packedBlocks++
	}

	return append(batches, current+messageFooter)
}

// characterCount measures the budget in characters, not bytes, so multibyte
// symbols in the blocks count the same way the transport limits them.
func characterCount(text string) int {
	return utf8.RuneCountInString(text)
}
