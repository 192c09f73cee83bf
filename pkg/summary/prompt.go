package summary

import "strings"

const systemPrompt = "You are an expert podcast analyst who creates structured, factual, bullet-point summaries. Only include information explicitly stated in the transcript."

const promptTemplate = `You are an expert podcast analyst. Create a structured, bullet-point summary of the transcript below.

Hard rules:
- Use ONLY information explicitly stated in the transcript. Do not add assumptions, background, or advice not present in the text.
- If a detail is uncertain or implied but not said, mark it as "unclear" instead of guessing.
- Keep it informational and specific: facts, claims, examples, numbers, definitions, decisions and tradeoffs. Avoid generic advice.
- No narrative article style. No long paragraphs.

Output format (use this exact structure):

1) Key blocks (grouped by storyline)
For each block:
- Headline takeaway (must read like a point, not a topic)
  - What they said (2-4 bullets)
  - Context: what problem or constraint led to this (1-2 bullets)
  - Example(s) / specifics: numbers, experiments, product flows, tool names, partners (1-4 bullets)
  - Tradeoffs / caveats / disagreements mentioned (0-3 bullets)
  - "So what": implication stated or clearly explained in the transcript (1-2 bullets)

2) Actionable takeaways mentioned
- What they recommend doing, with context and expected outcome if mentioned
- What they recommend avoiding, with context

3) Experiments / AB tests / tactics described
- Experiment or tactic: trigger, implementation details, result if mentioned

4) Workflows & process (expand every step)
If the transcript describes a workflow, give its goal, trigger and each step in order:
what the step means in their words, how they do it (tools mentioned), and the output it produces.
If any of these is missing write "Not specified in transcript". Do not leave steps as vague labels.

Transcript:
{transcript}`

// BuildPrompt fills the summary prompt with the transcript text.
func BuildPrompt(transcript string) string {
	return strings.Replace(promptTemplate, "{transcript}", transcript, 1)
}
