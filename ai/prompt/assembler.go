// Package prompt assembles the message list sent to the LLM gateway:
// matched records first, then conversation history, then the current query.
package prompt

import (
	"fmt"
	"strings"

	"github.com/hrygo/shoptalk/ai/catalog"
	"github.com/hrygo/shoptalk/ai/conversation"
	"github.com/hrygo/shoptalk/ai/intent"
	"github.com/hrygo/shoptalk/ai/internal/strutil"
	"github.com/hrygo/shoptalk/ai/llm"
	"github.com/hrygo/shoptalk/ai/match"
)

const systemRole = `你是一家生鲜电商的客服助手。请根据提供的商品和售后政策资料回答顾客问题。
回答要求：简洁、准确、友好；只依据资料作答，资料中没有的信息不要编造。`

// noContextInstruction is appended when retrieval found nothing relevant, so
// the model admits the gap instead of inventing an answer.
const noContextInstruction = `本次没有检索到相关资料。请礼貌告知顾客暂时无法确认该信息，建议咨询人工客服，不要编造商品或政策内容。`

// Assembler builds LLM payloads with a fixed context shape.
type Assembler struct {
	topN        int
	fieldBudget int
}

// Payload is the assembled request for the LLM gateway.
type Payload struct {
	Messages []llm.Message
}

// NewAssembler creates an assembler. topN caps how many matched records are
// rendered into the system prompt (default 5); fieldBudget caps each rendered
// field in runes (default 200).
func NewAssembler(topN, fieldBudget int) *Assembler {
	if topN <= 0 {
		topN = 5
	}
	if fieldBudget <= 0 {
		fieldBudget = 200
	}
	return &Assembler{topN: topN, fieldBudget: fieldBudget}
}

// Assemble produces the message list in deterministic order: one system
// message carrying the rendered top-N matches, history oldest first, then the
// current query as the final user message.
func (a *Assembler) Assemble(it intent.Intent, matches []match.Result, history []conversation.Turn, query string) Payload {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.SystemPrompt(a.systemPrompt(it, matches)))

	// History turns and the query are fields of the payload too: every
	// single field respects the budget so the provider limit holds no
	// matter what the client sends.
	for _, turn := range history {
		text := strutil.Truncate(turn.Text, a.fieldBudget)
		switch turn.Role {
		case conversation.RoleAssistant:
			messages = append(messages, llm.AssistantMessage(text))
		default:
			messages = append(messages, llm.UserMessage(text))
		}
	}

	messages = append(messages, llm.UserMessage(strutil.Truncate(query, a.fieldBudget)))
	return Payload{Messages: messages}
}

func (a *Assembler) systemPrompt(it intent.Intent, matches []match.Result) string {
	var sb strings.Builder
	sb.WriteString(systemRole)
	sb.WriteString("\n\n")

	if len(matches) == 0 {
		sb.WriteString(noContextInstruction)
		return sb.String()
	}

	sb.WriteString("参考资料：\n")
	n := len(matches)
	if n > a.topN {
		n = a.topN
	}
	for i := 0; i < n; i++ {
		sb.WriteString(a.renderRecord(i+1, matches[i].Record))
	}
	if it == intent.IntentAmbiguous {
		sb.WriteString("\n顾客的问题可能同时涉及商品和售后政策，请结合以上资料完整回答。\n")
	}
	return sb.String()
}

func (a *Assembler) renderRecord(idx int, rec *catalog.Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d. %s\n", idx, strutil.Truncate(rec.Name, a.fieldBudget))
	if rec.Kind == catalog.KindProduct {
		if label := rec.PriceLabel(); label != "" {
			fmt.Fprintf(&sb, "   价格：%s\n", label)
		}
		if rec.Specification != "" {
			fmt.Fprintf(&sb, "   规格：%s\n", strutil.Truncate(rec.Specification, a.fieldBudget))
		}
	}
	if rec.Description != "" {
		fmt.Fprintf(&sb, "   说明：%s\n", strutil.Truncate(rec.Description, a.fieldBudget))
	}
	return sb.String()
}

// TopN returns the record cap used when rendering context.
func (a *Assembler) TopN() int {
	return a.topN
}
