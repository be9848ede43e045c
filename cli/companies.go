package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/insmag/filings-engine/ledger"
)

// companiesCmd manages company master records.
type companiesCmd struct{}

func (*companiesCmd) Name() string     { return "companies" }
func (*companiesCmd) Synopsis() string { return "list and edit company master records" }
func (*companiesCmd) Usage() string {
	return `filings companies
filings companies set <code> <short name> <kind>
filings companies rm <code>

  Without arguments, lists the company records. "set" creates or
  updates one record; kind is one of general, life, retirement,
  workers_comp, transport. "rm" deletes one record.
`
}

func (*companiesCmd) SetFlags(*flag.FlagSet) {}

func (c *companiesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.close()

	switch f.Arg(0) {
	case "":
		return c.list(ctx, a)
	case "set":
		return c.set(ctx, a, f)
	case "rm":
		return c.remove(ctx, a, f)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown action %q\n", f.Arg(0))
		return subcommands.ExitUsageError
	}
}

func (c *companiesCmd) list(ctx context.Context, a *app) subcommands.ExitStatus {
	companies, err := a.store.ListCompanies(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing companies: %v\n", err)
		return subcommands.ExitFailure
	}
	if len(companies) == 0 {
		fmt.Println("No company records.")
		return subcommands.ExitSuccess
	}

	var sb strings.Builder
	sb.WriteString("# Companies\n\n")
	sb.WriteString("| Code | Short name | Kind |\n")
	sb.WriteString("|---|---|---|\n")
	for _, company := range companies {
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", company.Code, company.ShortName, company.Kind)
	}
	printMarkdown(sb.String())
	return subcommands.ExitSuccess
}

func (c *companiesCmd) set(ctx context.Context, a *app, f *flag.FlagSet) subcommands.ExitStatus {
	if f.NArg() != 4 {
		fmt.Fprintln(os.Stderr, "Error: set needs <code> <short name> <kind>")
		return subcommands.ExitUsageError
	}
	company := ledger.Company{
		Code:      ledger.NormalizeCompanyCode(f.Arg(1)),
		ShortName: f.Arg(2),
		Kind:      ledger.CompanyKind(f.Arg(3)),
	}
	if err := a.store.SaveCompany(ctx, company); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving company: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Saved %s (%s)\n", company.Code, company.ShortName)
	return subcommands.ExitSuccess
}

func (c *companiesCmd) remove(ctx context.Context, a *app, f *flag.FlagSet) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Error: rm needs <code>")
		return subcommands.ExitUsageError
	}
	code := ledger.NormalizeCompanyCode(f.Arg(1))
	if err := a.store.DeleteCompany(ctx, code); err != nil {
		fmt.Fprintf(os.Stderr, "Error deleting company: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Deleted %s\n", code)
	return subcommands.ExitSuccess
}
