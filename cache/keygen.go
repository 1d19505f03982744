package cache

import "strconv"

// KeyBestIDs is the key of the ranked id list.
const KeyBestIDs = "best_ids"

// StoryKey returns the key of a single story record.
func StoryKey(id int) string {
	return "story_" + strconv.Itoa(id)
}
