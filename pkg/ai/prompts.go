package ai

import "strings"

func useCaseSystemPrompt() string {
	return "You are a use case generator expert. Generate exactly 4 use cases, one per line, " +
		"without numbering or bullet points."
}

func buildUseCasePrompt(input UseCaseInput, orgContext string) string {
	tasks := strings.TrimSpace(input.Tasks)
	if tasks == "" {
		tasks = "refer to standard team tasks for this department; if the department is unfamiliar " +
			"you can assume typical tasks related to the given department"
	}

	builder := strings.Builder{}
	builder.WriteString("You are conducting a GenAI workshop to teach employees how to write effective prompts. ")
	builder.WriteString("The focus is on using the basic prompt structure: Role, Action/Task, Context, Format, Tone.\n\n")
	builder.WriteString("Goal: generate 4 simple and realistic AI use cases that help employees from the ")
	builder.WriteString(input.Department)
	builder.WriteString(" department use prompting in their daily work.\n\n")
	builder.WriteString("You are a Use Case Generator Agent. I will give you a department name and the key tasks that team performs. ")
	builder.WriteString("Output 4 use cases where an employee from that department can use AI to help with their actual work. These should be:\n")
	builder.WriteString("- Simple and practical (e.g., \"generate a formal email\", \"summarize a document\", \"create meeting notes\")\n")
	builder.WriteString("- Easy to express using Role, Action/Task, Context, Format, and Tone\n")
	builder.WriteString("- Aligned with what that department typically does\n")
	builder.WriteString("- Limited to simple prompting tasks only; no scenarios that involve building complex systems or custom applications\n\n")
	builder.WriteString("Department: ")
	builder.WriteString(input.Department)
	builder.WriteString("\nTasks:\n")
	builder.WriteString(tasks)
	builder.WriteString("\n\nPlease provide exactly 4 use cases (one per line, no bullets or numbering).")

	if orgContext != "" {
		builder.WriteString("\n\nContext about the organisation (for grounding the use cases):\n")
		builder.WriteString(orgContext)
	}

	return builder.String()
}

func evaluationSystemPrompt() string {
	return `You are a professional prompt evaluation expert. Respond only with valid JSON format as specified.
Just because Role, Action, Context, Format and Tone are present do not give full marks; also check
clarity, completeness of information, specificity and alignment with the use case.
Scoring criteria (out of 10):
- role present (1 point)
- action/task present (1 point)
- context present (1 point)
- format and tone present (2 points)
- clarity (1 point)
- completeness of information (1 point)
- specificity (1 point)
- alignment with use case (1 point)
- one extra point if you think the prompt is perfect`
}

func buildEvaluationPrompt(input EvaluationInput) string {
	builder := strings.Builder{}
	builder.WriteString("You are a Prompt Quality Evaluator. Evaluate a prompt written by a user according to the following criteria:\n\n")
	builder.WriteString("1. Prompt Structure Presence. Check whether each component is clearly specified in the prompt:\n")
	builder.WriteString("   - Role: who is being asked to perform the task (e.g., \"You are a travel planner\")\n")
	builder.WriteString("   - Action/Task: what is being asked (e.g., \"Plan a 5-day trip to Italy\")\n")
	builder.WriteString("   - Context: relevant background or constraints (e.g., \"For a family with kids under 10\")\n")
	builder.WriteString("   - Format: how the output should look (e.g., \"Return as a bullet-point itinerary\")\n")
	builder.WriteString("   - Tone: desired style of writing (e.g., \"Friendly and concise\")\n")
	builder.WriteString("   For each component report whether it is present (clearly expressed), partially present (implied or weak), or missing.\n\n")
	builder.WriteString("2. Scoring out of 10 per the criteria in the system message.\n\n")
	builder.WriteString("3. Use Case and Prompt Matching. Check whether the prompt is logically aligned with the use case provided.\n\n")
	builder.WriteString("4. Constructive Feedback. Point out missing elements, vagueness or confusing parts and give 2-3 short, actionable suggestions.\n\n")
	builder.WriteString("Only confirm a prompting technique if it is actively demonstrated in the structure or content of the prompt; ")
	builder.WriteString("a technique mentioned by name or keyword alone does not count.\n\n")
	builder.WriteString("Use Case: ")
	builder.WriteString(input.UseCase)
	builder.WriteString("\nPrompt to Evaluate: ")
	builder.WriteString(input.Prompt)
	builder.WriteString("\n\nReturn your response in this exact JSON format:\n")
	builder.WriteString(`{
  "role": {"status": "present/partially present/missing", "explanation": "brief explanation"},
  "action": {"status": "present/partially present/missing", "explanation": "brief explanation"},
  "context": {"status": "present/partially present/missing", "explanation": "brief explanation"},
  "format": {"status": "present/partially present/missing", "explanation": "brief explanation"},
  "tone": {"status": "present/partially present/missing", "explanation": "brief explanation"},
  "techniques": ["list of detected techniques"],
  "mismatches": ["list of mismatches with use case, empty if none"],
  "suggestions": ["suggestion 1", "suggestion 2", "suggestion 3"],
  "score": numerical_score_out_of_10
}`)

	return builder.String()
}
