// Package storyfixtures holds small compiled stories shared by tests.
package storyfixtures

// Crossroads opens with a tagged line and two choices that rejoin before
// the end. It declares the global variable gold, set to 3.
const Crossroads = `{"inkVersion":21,"root":[[
	"#","^chapter one","/#","^Start","\n",
	"ev","str","^Left","/str","/ev",{"*":"0.c-0","flg":20},
	"ev","str","^Right way","/str","/ev",{"*":"0.c-1","flg":20},
	{
		"c-0":["\n","^You go left.","\n",{"->":"0.g-0"},{"#f":5}],
		"c-1":["\n","^You take the right way.","\n",{"->":"0.g-0"},{"#f":5}],
		"g-0":["^Done.","\n","end",null]
	}
],"done",{
	"global decl":["ev",3,{"VAR=":"gold"},"/ev","end",null]
}]}`

// Broken fails at runtime by reading a missing variable as a divert
// target.
const Broken = `{"inkVersion":21,"root":[["^Before","\n",{"->":"missing_target","var":true},"end",null],"done",null]}`
