package record

// Artifact naming convention, fixed across all store implementations.
// Every artifact derived from one episode shares the episode's cache key.

// AudioName returns the blob name for the source audio of key.
func AudioName(key string) string { return key + ".mp3" }

// TranscriptName returns the blob name for the full transcript of key.
func TranscriptName(key string) string { return key + "_transcript.txt" }

// SummaryTextName returns the blob name for the summary text of key.
func SummaryTextName(key string) string { return key + "_summary.txt" }

// SummaryAudioName returns the blob name for the summary audio of key.
func SummaryAudioName(key string) string { return key + "_summary.mp3" }

// EpisodeDocName returns the metadata document name for the episode
// record of key, used by the blob-backed metadata store.
func EpisodeDocName(key string) string { return key + ".json" }

// SummaryDocName returns the metadata document name for the summary
// record of key, used by the blob-backed metadata store.
func SummaryDocName(key string) string { return key + "_summary.json" }
