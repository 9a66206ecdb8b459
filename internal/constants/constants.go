package constants

// Centralized constants for headers, env keys and route paths.
const (
	// EnvAddress is the listen address variable, also read by the
	// healthcheck binary. The remaining variables are declared as tags
	// on config.Env.
	EnvAddress = "CLAWCOMBAT_ADDR"

	// HTTP headers and content types
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"

	ContentTypeJSON = "application/json"

	// Authorization prefix
	BearerPrefix = "Bearer "

	// API key prefix issued at registration
	APIKeyPrefix = "cc_"
)

// Routes used by the backend router
const (
	RouteAPIPrefix      = "/api"
	RouteAgentsRegister = "/agents/register"
	RouteAgentStatus    = "/agents/:agentID/status"
	RouteLeaderboard    = "/leaderboard"
	RouteQueueJoin      = "/queue/join"
	RouteQueueCancel    = "/queue/cancel"
	RouteBattleByID     = "/battles/:battleID"
	RouteBattleMoves    = "/battles/:battleID/moves"
	RouteBattleAbort    = "/battles/:battleID/abort"
	RouteVersion        = "/version"
	RouteHealth         = "/healthz"
	RouteMetrics        = "/metrics"
)

// Common JSON response keys
const (
	JSONKeyError   = "error"
	JSONKeyMessage = "message"
	JSONKeyStatus  = "status"
)

// Common error messages used across API handlers
const (
	ErrInvalidRequest  = "Invalid request"
	ErrInvalidBattleID = "Invalid battle ID"
	ErrBattleNotFound  = "Battle not found"
	ErrAgentNotFound   = "Agent not found"

	ErrAgentNameTaken = "Agent name already registered"
	ErrUnknownElement = "Unknown element type"

	ErrAlreadyQueuedOrInBattle = "Agent already queued or in a battle"
	ErrNotQueued               = "Agent has no live queue entry"
	ErrAlreadyPaired           = "Queue entry was already paired into a battle"

	ErrBattleNotActive      = "Battle is not active"
	ErrNotParticipant       = "Agent is not a participant of this battle"
	ErrMoveAlreadySubmitted = "Move already submitted for this turn"
	ErrUnknownMove          = "Move is not in the agent's move set"
	ErrFailedStoreMove      = "Failed to store move"
	ErrFailedFetchBattle    = "Failed to fetch battle"
	ErrFailedAbortBattle    = "Failed to abort battle"
	ErrFailedJoinQueue      = "Failed to join queue"
	ErrFailedCancelQueue    = "Failed to cancel queue entry"
	ErrFailedRegisterAgent  = "Failed to register agent"
	ErrFailedFetchAgent     = "Failed to fetch agent"
	ErrFailedFetchBoard     = "Failed to fetch leaderboard"

	ErrAuthRequired  = "Authentication required"
	ErrInvalidAPIKey = "Invalid API key"
	ErrForeignAgent  = "API key does not match the requested agent"
)

// Logging field names
const (
	LogFieldBattle    = "battle_id"
	LogFieldAgent     = "agent_id"
	LogFieldTurn      = "turn"
	LogFieldToken     = "queue_token"
	LogFieldAddr      = "addr"
	LogFieldWorker    = "worker_id"
	LogFieldBand      = "level_band"
	LogFieldWinner    = "winner"
	LogFieldCount     = "count"
	LogFieldConfig    = "config_path"
	LogFieldDB        = "db_path"
	LogFieldAgentName = "name"
)
