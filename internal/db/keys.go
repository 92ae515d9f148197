package db

import "strconv"

// Key layout shared by every store. Ids are decimal strings inside keys.
const (
	UserSeqKey    = "seq:user"
	PostSeqKey    = "seq:post"
	UsernameIndex = "users:by-username"

	UserPrefix      = "user:"
	FollowersPrefix = "followers:"
	FollowingPrefix = "following:"
	PostPrefix      = "post:"
	FeedPrefix      = "feed:"
)

func UserKey(id int64) string      { return UserPrefix + FormatID(id) }
func FollowersKey(id int64) string { return FollowersPrefix + FormatID(id) }
func FollowingKey(id int64) string { return FollowingPrefix + FormatID(id) }
func PostKey(id int64) string      { return PostPrefix + FormatID(id) }
func FeedKey(id int64) string      { return FeedPrefix + FormatID(id) }

func FormatID(id int64) string { return strconv.FormatInt(id, 10) }

// ParseIDs converts zset or list members back into ids.
func ParseIDs(members []string) ([]int64, error) {
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
