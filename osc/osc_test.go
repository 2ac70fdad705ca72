package osc

import "bytes"

type testCase struct {
	name    string
	obj     *Message
	raw     []byte
	wantErr bool
}

// raw concatenates the given chunks into one datagram.
func raw(chunks ...[]byte) []byte {
	return bytes.Join(chunks, nil)
}

// padded returns s NUL-terminated and padded to a 32-bit boundary.
func padded(s string) []byte {
	b := append([]byte(s), 0)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

var messageTestCases = []testCase{
	{
		name: "no_arguments",
		obj:  &Message{Address: "/xremote", Arguments: []interface{}{}},
		raw:  raw(padded("/xremote"), padded(",")),
	},
	{
		name: "int32",
		obj:  &Message{Address: "/-action/setrtasrc", Arguments: []interface{}{int32(4)}},
		raw:  raw(padded("/-action/setrtasrc"), padded(",i"), []byte{0, 0, 0, 4}),
	},
	{
		name: "float32",
		obj:  &Message{Address: "/ch/01/mix/fader", Arguments: []interface{}{float32(0.75)}},
		raw:  raw(padded("/ch/01/mix/fader"), padded(",f"), []byte{0x3f, 0x40, 0, 0}),
	},
	{
		name: "strings_and_ints",
		obj: &Message{Address: "/batchsubscribe", Arguments: []interface{}{
			"/meters", "/meters/15", int32(0), int32(0), int32(99),
		}},
		raw: raw(padded("/batchsubscribe"), padded(",ssiii"),
			padded("/meters"), padded("/meters/15"),
			[]byte{0, 0, 0, 0}, []byte{0, 0, 0, 0}, []byte{0, 0, 0, 99}),
	},
	{
		name: "blob",
		obj:  &Message{Address: "/meters", Arguments: []interface{}{[]byte{1, 2, 3, 4, 5}}},
		raw:  raw(padded("/meters"), padded(",b"), []byte{0, 0, 0, 5, 1, 2, 3, 4, 5, 0, 0, 0}),
	},
	{
		name: "nil_and_bools",
		obj:  &Message{Address: "/flags", Arguments: []interface{}{nil, true, false}},
		raw:  raw(padded("/flags"), padded(",NTF")),
	},
}
