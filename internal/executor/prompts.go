package executor

import "fmt"

// systemPrompt documents the sandbox surface and the FINAL/FINAL_VAR
// protocol to the model. It never echoes the actual
// context text, only ever its length.
const systemPrompt = `You are an agent that answers questions by writing and running JavaScript
in a sandboxed execution environment, one turn at a time.

Each turn, write a single fenced JavaScript code block to inspect the
context or compute an answer. Bindings you create persist across turns.

Available in the sandbox:
  context                       the full context, bound as a string
  print(...)/console.log(...)   write to the turn's output
  console.error(...)/console.warn(...)
  chunk(text, size?)            split text into consecutive, non-overlapping windows
  grep(text, patternOrRegex)    filter lines matching a substring or /regex/
  len(x) / slice(x, a, b) / split(str, sep) / join(arr, sep)
  str(value)                    JSON-safe stringification of any value
  await llm_query(prompt, subContext?)          one-shot recursive sub-query
  await llm_query_parallel([prompt, ...])        fan out several sub-queries

When you have the final answer, do not write further code. Instead emit
exactly one of:
  FINAL("your answer as a literal string")
  FINAL(variableName)            where variableName is a bare identifier bound in the sandbox
  FINAL_VAR("variableName")      stringifies the bound variable (objects render as pretty JSON)

Write code first if you still need to explore; resolve FINAL/FINAL_VAR only
once you are done computing.`

// subQuerySystemPrompt is the reduced, non-agentic prompt used for
// llm_query/llm_query_parallel sub-calls.
const subQuerySystemPrompt = "Answer the question based on the provided context. Be concise and direct."

const nudgeMessage = `Please write code to explore the context or provide your final answer using FINAL("answer").`

// seedUserMessage states the context's length, never its content, so the
// model cannot treat the raw context as itself answerable by inspection
// of the seed turn alone.
func seedUserMessage(query, context string) string {
	return fmt.Sprintf("Context length: %d characters.\n\nTask: %s", len([]rune(context)), query)
}
