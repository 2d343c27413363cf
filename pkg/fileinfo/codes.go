package fileinfo

// TypeKey pairs a base kind with its attribute. It is the index the
// styling collaborator resolves colors against.
type TypeKey struct {
	Kind  Kind
	Extra Extra
}

// typeCodes mirrors the conventional ls-style two-letter codes. It is a
// pure lookup surface for the styling layer; classification itself never
// consults it.
var typeCodes = map[string]TypeKey{
	"fi": {KindRegular, ExtraNormal},
	"su": {KindRegular, ExtraSetuid},
	"sg": {KindRegular, ExtraSetgid},
	"ex": {KindRegular, ExtraExecutable},
	"mh": {KindRegular, ExtraMultiLink},
	"ln": {KindSymlink, ExtraNormal},
	"or": {KindSymlink, ExtraOrphan},
	"di": {KindDirectory, ExtraNormal},
	"st": {KindDirectory, ExtraSticky},
	"tw": {KindDirectory, ExtraStickyWrite},
	"ow": {KindDirectory, ExtraWrite},
	"bd": {KindBlock, ExtraNormal},
	"cd": {KindCharacter, ExtraNormal},
	"pi": {KindFIFO, ExtraNormal},
	"so": {KindSocket, ExtraNormal},
	"uk": {KindUnknown, ExtraNormal},
	"mi": {KindNotFound, ExtraNormal},
}

// TypeCodes returns a copy of the two-letter code table so callers can
// iterate or extend it without sharing mutable state.
func TypeCodes() map[string]TypeKey {
	out := make(map[string]TypeKey, len(typeCodes))
	for code, key := range typeCodes {
		out[code] = key
	}
	return out
}

// TypeCode looks up a single two-letter code.
func TypeCode(code string) (TypeKey, bool) {
	key, ok := typeCodes[code]
	return key, ok
}
