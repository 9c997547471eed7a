package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// Rule is one ownership rule the demo illustrates.
type Rule struct {
	Title       string
	Subtitle    string
	Explanation string
}

var rules = []Rule{
	{
		Title:    "A value has one exclusive owner at a time.",
		Subtitle: "Copies of an exclusive owner are rejected.",
		Explanation: `owner.Unique carries a guard that remembers its own address. A value
copy keeps the old address, so the copy panics with OWN1003 on first
use, and go vet's copylocks check flags it before it ever runs.

Example:
    p := owner.Make(235)
    defer p.Release()
    q := *p       // vet: assignment copies lock value
    q.Get()       // panic OWN1003: illegal copy of owner`,
	},
	{
		Title:    "Build values in place.",
		Subtitle: "Make leaves no window where an allocation has no owner.",
		Explanation: `Adopt takes over a pointer someone already allocated; Make allocates
and owns in one step. MakeFunc is the fallible form: a constructor error
or a full heap surfaces at once as OWN1002 and no owner is created.

Example:
    pp := owner.Make(711)
    defer pp.Release()`,
	},
	{
		Title:    "Transfer is visible at the call site.",
		Subtitle: "f(p.Move()) hands the value over and empties p.",
		Explanation: `A function that takes ownership accepts *owner.Unique[T] and is called
with p.Move(). Afterwards p is Empty: Get panics with OWN1001 and
String prints <empty>. The deferred Release on p becomes a no-op.

Example:
    ptrBar := owner.Make(1719)
    defer ptrBar.Release()
    acceptParameter(ptrBar.Move())   // prints 1729
    fmt.Println("ptrBar:", ptrBar)   // ptrBar: <empty>`,
	},
	{
		Title:    "Shared owners are equals.",
		Subtitle: "Every Clone adds one owner; the last Release tears down.",
		Explanation: `owner.Shared keeps an atomic count in a control block shared by all
handles. Clone increments it, Release decrements it, and the 1 -> 0
transition runs teardown exactly once. Handles may be cloned and
released on different goroutines.

Example:
    p1 := owner.MakeShared(1317)
    p2 := p1.Clone()
    p3 := p2.Clone()     // p3.UseCount() == 3`,
	},
	{
		Title:    "Teardown runs through the dynamic type.",
		Subtitle: "A base-typed owner still destroys the derived value.",
		Explanation: `Values that hold resources implement owner.Destroyer. An owner typed
by an interface calls Destroy on the value it actually holds, so a
DerivedMessenger releases its own buffer before its embedded base.
A derived type that forgets to override Destroy only tears down the
base, and the ledger reports the buffer as a leak (OWN2004).`,
	},
	{
		Title:    "Empty owners fail loudly.",
		Subtitle: "No silent zero values.",
		Explanation: `Dereferencing an Empty owner panics with OWN1001 naming the owner and
whether it was moved out. TryGet returns the same error for code that
prefers to check.`,
	},
	{
		Title:    "Never adopt one pointer twice.",
		Subtitle: "Two owners of one allocation means two teardowns.",
		Explanation: `Adopting the same pointer into two independent owners breaks the count:
each believes it is the last. Make a second owner with Clone instead.
Owners attached to a Heap catch this and panic with OWN1003.`,
	},
}

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Display the ownership rules the demo illustrates",
		Long: `Display the ownership rules the demo illustrates.

Examples:
  ownership rules               # list all rules
  ownership rules --explain 3   # explain rule 3 in detail
  ownership rules -e 3          # same, short form
  ownership rules --explain-all # show all with explanations`,
		Args: cobra.NoArgs,
		RunE: runRules,
	}
	cmd.Flags().IntP("explain", "e", 0, fmt.Sprintf("explain rule N (1-%d) in detail", len(rules)))
	cmd.Flags().Bool("explain-all", false, "show all rules with explanations")
	return cmd
}

func runRules(cmd *cobra.Command, _ []string) error {
	explain, err := cmd.Flags().GetInt("explain")
	if err != nil {
		return fmt.Errorf("failed to get explain flag: %w", err)
	}
	explainAll, err := cmd.Flags().GetBool("explain-all")
	if err != nil {
		return fmt.Errorf("failed to get explain-all flag: %w", err)
	}

	out := cmd.OutOrStdout()
	if explain > 0 {
		return printExplanation(out, explain)
	}
	if explainAll {
		printAllExplanations(out)
		return nil
	}
	printRules(out)
	return nil
}

func printRules(out io.Writer) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Ownership Rules")
	fmt.Fprintln(out, strings.Repeat("=", 15))
	fmt.Fprintln(out)
	for i, r := range rules {
		fmt.Fprintf(out, "%2d. %s\n", i+1, r.Title)
		fmt.Fprintf(out, "    (%s)\n", r.Subtitle)
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, "Use --explain N to learn more about a specific rule.")
}

func printExplanation(out io.Writer, n int) error {
	if n < 1 || n > len(rules) {
		return fmt.Errorf("rule number must be between 1 and %d, got %d", len(rules), n)
	}
	printRule(out, n, rules[n-1])
	fmt.Fprintln(out)
	return nil
}

func printAllExplanations(out io.Writer) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Ownership Rules: Complete Guide")
	fmt.Fprint(out, strings.Repeat("=", 31))
	for i, r := range rules {
		fmt.Fprintln(out)
		printRule(out, i+1, r)
	}
	fmt.Fprintln(out)
}

func printRule(out io.Writer, n int, r Rule) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Rule %d: %s\n", n, r.Title)
	fmt.Fprintf(out, "(%s)\n", r.Subtitle)
	fmt.Fprintln(out, strings.Repeat("-", 60))
	fmt.Fprintln(out)
	fmt.Fprintln(out, r.Explanation)
}
