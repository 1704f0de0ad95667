package prompts

const defaultSystem = `You are an expert procurement analyst evaluating commercial proposals against tender requirements.
Answer with a single JSON object and nothing else. Do not wrap it in prose.
Scores are integers from 0 to 100. If the documents do not contain enough information to judge a criterion, omit it instead of guessing.
Report monetary amounts exactly as written in the proposal together with their ISO 4217 currency code.`

const jsonHeader = `{{define "header"}}REFERENCE REQUIREMENTS:
{{if .Reference}}{{.Reference}}{{else}}(no reference document supplied){{end}}

COMMERCIAL PROPOSAL:
{{.Proposal}}

Evaluate the proposal on these criteria (weight in the overall score in parentheses):
{{range $i, $c := .Criteria}}{{add $i 1}}. {{$c.Key}}: {{$c.Title}} ({{percent $c.Weight}}%)
{{end}}{{end}}`

const basicUser = jsonHeader + `{{template "header" .}}
Return JSON of the form:
{"company_name": "...", "total_cost": "...", "currency": "RUB", "timeline_months": 0,
 "criteria": {{"{"}}{{range $i, $c := .Criteria}}{{if $i}}, {{end}}"{{$c.Key}}": 0{{end}}{{"}"}}}`

const detailedUser = jsonHeader + `{{template "header" .}}
For each criterion give a score, a one or two sentence rationale and up to three key findings.
Return JSON of the form:
{"company_name": "...", "total_cost": "...", "currency": "RUB", "timeline_months": 0,
 "criteria": {"<criterion>": {"score": 0, "rationale": "...", "key_findings": ["..."]}},
 "summary": "..."}`

const fullUser = jsonHeader + `{{template "header" .}}
For each criterion give a score, a rationale, key findings and concrete recommendations for the vendor.
Finish with an overall summary, a list of overall recommendations and your verdict (accept, revise or reject).
Return JSON of the form:
{"company_name": "...", "total_cost": "...", "currency": "RUB", "timeline_months": 0,
 "criteria": {"<criterion>": {"score": 0, "rationale": "...", "key_findings": ["..."], "recommendations": ["..."]}},
 "summary": "...", "recommendations": ["..."], "recommendation": "revise"}`
