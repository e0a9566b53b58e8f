package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

type keyKind uint8

const (
	kindArticle keyKind = iota + 1
	kindSearch
	kindStory
	kindComments
	kindContent
	kindList
)

// Key identifies a cached value. The set of kinds is closed; build keys
// with the constructors below.
type Key struct {
	kind  keyKind
	value string
}

// ArticleKey identifies a single article by provider-local id.
func ArticleKey(id string) Key { return Key{kindArticle, id} }

// SearchKey identifies the results of a free-text query.
func SearchKey(query string) Key { return Key{kindSearch, hashString(query)} }

// StoryKey identifies a single story by numeric id.
func StoryKey(id int64) Key { return Key{kindStory, strconv.FormatInt(id, 10)} }

// CommentsKey identifies the comment thread of one item.
func CommentsKey(id string) Key { return Key{kindComments, id} }

// ContentKey identifies fetched content for a URL.
func ContentKey(url string) Key { return Key{kindContent, hashString(url)} }

// ListKey identifies a listing ("top", "all/50").
func ListKey(category string) Key { return Key{kindList, category} }

// String is the stored form of the key.
func (k Key) String() string {
	var prefix string
	switch k.kind {
	case kindArticle:
		prefix = "article:"
	case kindSearch:
		prefix = "search:"
	case kindStory:
		prefix = "story:"
	case kindComments:
		prefix = "comments:"
	case kindContent:
		prefix = "content:"
	case kindList:
		prefix = "list:"
	default:
		prefix = "invalid:"
	}
	return prefix + k.value
}

// hashString bounds free-text key parts: first 8 bytes of SHA-256, hex.
func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:8])
}
