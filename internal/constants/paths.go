package constants

// File and directory names under the governance root.
// The on-disk layout is authoritative:
//
//	<root>/
//	  definition.json
//	  state.json
//	  constitution.txt
//	  risk-register.json
//	  dcl/
//	    dcl-config.json
//	    packets/<packet_id>/{HEAD, journal.json, commits/NNNNNN.json}
//	    project-checkpoints/<checkpoint_id>.json
const (
	// DefinitionFileName holds work areas and packet definitions.
	DefinitionFileName = "definition.json"

	// StateFileName holds runtime packet state plus the lifecycle log.
	StateFileName = "state.json"

	// ConstitutionFileName is the governance rules document whose hash is
	// bound into every commit.
	ConstitutionFileName = "constitution.txt"

	// RiskRegisterFileName holds residual risk entries.
	RiskRegisterFileName = "risk-register.json"

	// DclDirName is the deterministic commitment layer directory.
	DclDirName = "dcl"

	// DclConfigFileName is the DCL lock document.
	DclConfigFileName = "dcl-config.json"

	// PacketsDirName holds per-packet commit chains.
	PacketsDirName = "packets"

	// CommitsDirName holds the numbered commit files of one packet.
	CommitsDirName = "commits"

	// HeadFileName is the per-packet latest-commit pointer.
	HeadFileName = "HEAD"

	// JournalFileName is the transient crash-recovery journal.
	JournalFileName = "journal.json"

	// CheckpointsDirName holds project checkpoint snapshots.
	CheckpointsDirName = "project-checkpoints"

	// WardenHome is the per-user directory for config and logs.
	WardenHome = ".warden"

	// LogsDirName is where the rotating CLI log lives under WardenHome.
	LogsDirName = "logs"

	// LogFileName is the rotating CLI log file.
	LogFileName = "warden.log"

	// ConfigFileName is the optional YAML config file name.
	ConfigFileName = "config.yaml"
)

// CommitSeqWidth is the zero-padding width of commit file names
// (000001.json ... NNNNNN.json).
const CommitSeqWidth = 6

// Directory and file permission constants.
const (
	// DirPerm is the secure directory permission for governance data.
	DirPerm = 0o750

	// FilePerm is the secure file permission for governance data.
	FilePerm = 0o600
)
