package patterns

// =============================================================================
// PATTERN DEFINITIONS BY CATEGORY
// All patterns are registered here and compiled once at init.
// Single source of truth for payload threat patterns.
// =============================================================================

// --- SECRET / CREDENTIAL EXPOSURE PATTERNS ---
// A QR code carrying any of these is leaking credentials to whoever scans it.
func (r *Registry) registerSecretPatterns() {
	cat := CategorySecret

	// Structured tokens
	r.register("jwt_token", `eyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*`, cat,
		"JWT token exposed", "JSON Web Token embedded in payload")
	r.register("aws_access_key", `AKIA[0-9A-Z]{16}`, cat,
		"AWS access key exposed", "AWS Access Key ID")
	r.register("google_api_key", `AIza[0-9A-Za-z\-_]{35}`, cat,
		"Google API key exposed", "Google Cloud API key")
	r.register("stripe_live_key", `(sk|rk)_live_[a-zA-Z0-9]{20,}`, cat,
		"Stripe live key exposed", "Stripe live secret/restricted key (test keys excluded)")
	r.register("slack_token", `xox[bp]-[a-zA-Z0-9-]{10,}`, cat,
		"Slack token exposed", "Slack bot or user token")
	r.register("github_token", `(ghp|gho|ghu|ghs|ghr)_[a-zA-Z0-9]{36,}`, cat,
		"GitHub token exposed", "GitHub personal access / OAuth token")
	r.register("gitlab_token", `glpat-[a-zA-Z0-9\-_]{20,}`, cat,
		"GitLab token exposed", "GitLab personal access token")
	r.register("openai_api_key", `sk-(proj-)?[a-zA-Z0-9]{20,}`, cat,
		"OpenAI API key exposed", "OpenAI API key")

	// Cryptographic material
	r.register("private_key_block", `-----BEGIN [A-Z ]*PRIVATE KEY-----`, cat,
		"Private key exposed", "PEM private key header")

	// Connection strings carry credentials inline
	r.register("db_connection_string", `(?i)(postgresql|mysql|mongodb|redis|amqp)://[^\s"']*:[^\s"'@]+@`, cat,
		"Database credentials exposed", "Connection string with inline password")
	r.register("password_assign", `(?i)password\s*[=:]\s*[^\s'";]{6,}`, cat,
		"Password exposed", "Password assignment in payload")
}

// --- INJECTION SYNTAX PATTERNS ---
// Payloads that try to exploit whatever system renders or stores the scan.
func (r *Registry) registerInjectionPatterns() {
	r.register("sql_union_select", `(?i)UNION\s+SELECT`, CategorySQLInjection,
		"SQL injection syntax", "UNION SELECT marker")
	r.register("sql_or_true", `(?i)('\s*OR\s+'?1'?\s*=\s*'?1|OR\s+1=1\s*--)`, CategorySQLInjection,
		"SQL injection syntax", "Tautology-based injection marker")
	r.register("sql_waitfor", `(?i)WAITFOR\s+DELAY`, CategorySQLInjection,
		"SQL injection syntax", "Time-based blind injection marker")
	r.register("sql_drop_table", `(?i)DROP\s+TABLE`, CategorySQLInjection,
		"SQL injection syntax", "Destructive DDL marker")

	r.register("xss_script_tag", `(?i)<script[\s>]`, CategoryXSS,
		"Script injection syntax", "Inline script tag")
	r.register("xss_js_scheme", `(?i)javascript:`, CategoryXSS,
		"Script injection syntax", "javascript: URI scheme")
	r.register("xss_event_handler", `(?i)\bon(error|load|click|mouseover)\s*=`, CategoryXSS,
		"Script injection syntax", "Inline event handler")

	r.register("cmd_rm_rf", `;\s*rm\s+-rf`, CategoryCommandInj,
		"Command injection syntax", "Destructive shell command chain")
	r.register("cmd_pipe_shell", `\|\s*(bash|sh)\b`, CategoryCommandInj,
		"Command injection syntax", "Pipe into shell interpreter")
	r.register("cmd_subshell", "[;&|]\\s*(\\$\\(|`)(cat|nc|wget|curl|rm|whoami)", CategoryCommandInj,
		"Command injection syntax", "Subshell executing recon/exfil tool")
	r.register("cmd_windows", `(?i)cmd\.exe`, CategoryCommandInj,
		"Command injection syntax", "Windows command interpreter")

	r.register("path_dotdot", `\.\./\.\./`, CategoryPathTrav,
		"Path traversal syntax", "Repeated parent-directory traversal")
	r.register("path_etc_passwd", `(?i)/etc/(passwd|shadow)`, CategoryPathTrav,
		"Path traversal syntax", "Sensitive system file reference")
	r.register("path_windows_dir", `(?i)c:\\windows`, CategoryPathTrav,
		"Path traversal syntax", "Windows system directory reference")
}
