package config

// SampleConfig returns a fully commented configuration file
func SampleConfig() string {
	return `# AttendSum configuration
version: "1.0"

api:
  # Analytics endpoints (filter options, insights, risks, reports)
  base_url: "http://localhost:8000/api/alerts"
  # Login and current-user endpoints
  auth_url: "http://localhost:8000/api/auth"
  timeout: 30s
  # Report downloads can take several minutes
  report_timeout: 300s

session:
  # Bearer token storage, mode 0600
  token_file: "~/.config/attendsum/token"
  # Pick up tokens written by other attendsum processes
  watch: true
  # Address of "attendsum listen"
  listen_addr: "127.0.0.1:8787"
  # Origins allowed to hand over a token; empty means loopback only, "*" means any
  allowed_origins: []
  # Path fragments served without a token; empty means the built-in list
  public_endpoints: []

output:
  default_format: "text"   # text|json|markdown|csv|table
  color_mode: "auto"       # auto|always|never
  emoji: true
  verbose: false
  timestamp_format: "2006-01-02 15:04:05"

dashboard:
  page_size: 10
  grade_sort_desc: false
  school_sort: "risk"      # risk|name|students

reports:
  directory: "~/Downloads"
  default_type: "summary"  # summary|detailed|below_85|tier1|tier4

ai:
  enabled: false
  provider: "ollama"       # ollama|openai
  model: "llama3.2"
  endpoint: "http://localhost:11434/v1"
  api_key: ""
  timeout: 60s
  max_retries: 2

snapshot:
  # Postgres DSN for "attendsum snapshot"; also ATTENDSUM_DB_DSN
  dsn: ""

logging:
  # Mirror every log line to this file in logfmt for "attendsum activity"
  activity_file: ""
`
}

// MinimalSampleConfig returns a configuration with only the essentials
func MinimalSampleConfig() string {
	return `version: "1.0"
api:
  base_url: "http://localhost:8000/api/alerts"
  auth_url: "http://localhost:8000/api/auth"
reports:
  directory: "~/Downloads"
`
}
