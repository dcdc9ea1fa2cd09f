package story

import (
	"testing"
)

// Compiled stories used across the engine tests.
const (
	helloStory = `{"inkVersion":21,"root":[["^Hello, world!","\n","end",null],"done",null]}`

	choiceStory = `{"inkVersion":21,"root":[[
		"^Start","\n",
		"ev","str","^Left","/str","/ev",{"*":"0.c-0","flg":20},
		"ev","str","^Right way","/str","/ev",{"*":"0.c-1","flg":20},
		{
			"c-0":["\n","^You go left.","\n",{"->":"0.g-0"},{"#f":5}],
			"c-1":["\n","^You take the right way.","\n",{"->":"0.g-0"},{"#f":5}],
			"g-0":["^Done.","\n","end",null]
		}
	],"done",null]}`

	functionStory = `{"inkVersion":21,"root":[[
		"ev",{"VAR?":"x"},{"f()":"double"},"out","/ev","\n",
		"ev",5,"/ev",{"VAR=":"x","re":true},
		"^Value is ","ev",{"VAR?":"x"},"out","/ev","^.","\n",
		"end",null
	],"done",{
		"double":[{"temp=":"n"},"ev",{"VAR?":"n"},2,"*","/ev","~ret",null],
		"global decl":["ev",2,{"VAR=":"x"},"/ev","end",null]
	}]}`

	externalStory = `{"inkVersion":21,"root":[[
		"ev","str","^Ann","/str",{"x()":"greet","exArgs":1},"out","/ev","\n",
		"end",null
	],"done",null]}`

	fallbackStory = `{"inkVersion":21,"root":[[
		"ev","str","^Ann","/str",{"x()":"greet","exArgs":1},"out","/ev","\n",
		"end",null
	],"done",{
		"greet":[{"temp=":"who"},"ev","str","^Hello ","ev",{"VAR?":"who"},"out","/ev","/str","/ev","~ret",null]
	}]}`

	glueStory = `{"inkVersion":21,"root":[["^Hello","\n","<>","^ world","\n","^Next","\n","end",null],"done",null]}`

	tagStory = `{"inkVersion":21,"root":[["#","^intro","/#","^Line","\n","end",null],"done",{
		"knot":[["#","^knot tag","/#","^Inside","\n","end",null],null]
	}]}`

	loopStory = `{"inkVersion":21,"root":[["ev",1,"pop","/ev",{"->":"0"},null],"done",null]}`

	randomStory = `{"inkVersion":21,"root":[["ev",1,100,"rnd","out","/ev","\n","end",null],"done",null]}`

	tunnelStory = `{"inkVersion":21,"root":[[
		"^A","\n",{"->t->":"tun"},"^C","\n","end",null
	],"done",{
		"tun":["^B","\n","ev","void","/ev","->->",null]
	}]}`

	badTunnelStory = `{"inkVersion":21,"root":[["^A","\n","ev","void","/ev","->->",null],"done",null]}`

	fallbackChoiceStory = `{"inkVersion":21,"root":[[
		"^Hi","\n",{"*":"0.c-0","flg":24},
		{"c-0":["^Fallback.","\n","end",{"#f":5}]}
	],"done",null]}`

	visitStory = `{"inkVersion":21,"root":[[
		"ev",{"CNT?":"knot"},"out","/ev","\n",
		{"->t->":"knot"},
		"ev",{"CNT?":"knot"},"out","/ev","\n",
		"ev",{"^->":"knot"},"readc","out","/ev","\n",
		"end",null
	],"done",{
		"knot":["ev","void","/ev","->->",{"#f":1}]
	}]}`

	missingDivertStory = `{"inkVersion":21,"root":[["^A","\n",{"->":"nowhere"},null],"done",null]}`

	partialDivertStory = `{"inkVersion":21,"root":[["^A","\n",{"->":"knot.nope.0"},null],"done",{
		"knot":["^K","\n","end",null]
	}]}`

	missingChoiceTargetStory = `{"inkVersion":21,"root":[[
		"^Hi","\n","ev","str","^Go","/str","/ev",{"*":"knot.nope","flg":20},"end",null
	],"done",{
		"knot":["^K","\n","end",{"#f":1}]
	}]}`

	missingCountStory = `{"inkVersion":21,"root":[[
		"ev",{"CNT?":"knot.nope"},"out","/ev","\n","end",null
	],"done",{
		"knot":["^K","\n","end",{"#f":1}]
	}]}`

	listStory = `{"inkVersion":21,"root":[[
		"ev","str","^colours","/str",2,"listInt","out","/ev","\n",
		"ev",{"VAR?":"mood"},"LIST_COUNT","out","/ev","\n",
		"end",null
	],"done",{
		"global decl":["ev",{"list":{"colours.red":1,"colours.blue":3}},{"VAR=":"mood"},"/ev","end",null]
	}],"listDefs":{"colours":{"red":1,"green":2,"blue":3}}}`
)

func mustStory(t *testing.T, data string, opts ...Option) *Story {
	t.Helper()
	s, err := New([]byte(data), append([]Option{WithSeed(7)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}
