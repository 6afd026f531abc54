package codec

// StorageKey builds the key of a double keyed map entry hashed with
// blake2_128concat over the concatenated keys
func StorageKey(pallet, item string, keys ...[]byte) []byte {
	key := make([]byte, 0, 64)
	key = append(key, Twox128([]byte(pallet))...)
	key = append(key, Twox128([]byte(item))...)
	if len(keys) == 0 {
		return key
	}
	var concat []byte
	for _, k := range keys {
		concat = append(concat, k...)
	}
	return append(key, Blake2_128Concat(concat)...)
}
