package tokens

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// chat formatting overhead, per message and per request
	tokensPerMessage = 3
	tokensPerRequest = 3

	fallbackEncoding = "cl100k_base"
)

// Counter counts tokens of a text for a particular model.
type Counter interface {
	Count(text string) (int, error)
}

// TiktokenCounter resolves the encoding lazily on first use, since loading
// the BPE ranks may hit the network.
type TiktokenCounter struct {
	model string

	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

func NewTiktokenCounter(model string) *TiktokenCounter {
	return &TiktokenCounter{model: model}
}

func (c *TiktokenCounter) load() {
	enc, err := tiktoken.EncodingForModel(c.model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
	}
	if err != nil {
		c.err = fmt.Errorf("load tiktoken encoding: %w", err)
		return
	}
	c.enc = enc
}

func (c *TiktokenCounter) Count(text string) (int, error) {
	c.once.Do(c.load)
	if c.err != nil {
		return 0, c.err
	}
	return len(c.enc.Encode(text, nil, nil)), nil
}

// Estimate is a prompt/completion token pair.
type Estimate struct {
	PromptTokens     int
	CompletionTokens int
}

func (e Estimate) Total() int { return e.PromptTokens + e.CompletionTokens }

// EstimateStreaming approximates usage of a streamed chat completion that
// reported none. The prompt side counts the system and user messages plus
// the chat framing overhead.
func EstimateStreaming(counter Counter, prompt, response, system string) (Estimate, error) {
	promptTokens, err := counter.Count(prompt)
	if err != nil {
		return Estimate{}, err
	}
	messages := 1
	if system != "" {
		n, err := counter.Count(system)
		if err != nil {
			return Estimate{}, err
		}
		promptTokens += n
		messages++
	}
	promptTokens += messages*tokensPerMessage + tokensPerRequest

	completion, err := counter.Count(response)
	if err != nil {
		return Estimate{}, err
	}
	return Estimate{PromptTokens: promptTokens, CompletionTokens: completion}, nil
}

// Fallback is the character/4 heuristic used when no tokenizer is available.
func Fallback(prompt, response string) Estimate {
	return Estimate{
		PromptTokens:     utf8.RuneCountInString(prompt) / 4,
		CompletionTokens: utf8.RuneCountInString(response) / 4,
	}
}
