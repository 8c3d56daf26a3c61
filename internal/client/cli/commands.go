package cli

import (
	"context"
	"fmt"
	"strings"
)

// Execute выполняет одну строку команды. Возвращает true, если нужно выйти.
func (c *Cli) Execute(ctx context.Context, line string) (bool, error) {
	c.checkExpired()

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	command, args := strings.ToLower(fields[0]), fields[1:]

	switch command {
	case "quit", "exit":
		return true, nil
	case "help", "?":
		c.printHelp()
		return false, nil
	case "login":
		return false, c.runLogin(ctx, args)
	case "logout":
		return false, c.runLogout(ctx)
	case "whoami":
		return false, c.runWhoami(ctx)
	case "status":
		return false, c.runStatus(ctx)
	case "menu":
		return false, c.runMenu(ctx)
	case "open":
		return false, c.runOpen(ctx, args)
	}

	// Команды ниже работают внутри открытого представления
	switch command {
	case "tab":
		return false, c.runTab(ctx, args)
	case "table", "ls":
		return false, c.runTable()
	case "refresh":
		return false, c.runRefresh(ctx)
	case "search":
		return false, c.runSearch(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0])))
	case "range":
		return false, c.runRange(args)
	case "facet":
		return false, c.runFacet(args)
	case "facets":
		return false, c.runFacets()
	case "clear":
		return false, c.runClear()
	case "page":
		return false, c.runPage(args)
	case "pagesize":
		return false, c.runPageSize(args)
	case "show":
		return false, c.runShow(ctx, args)
	case "load":
		return false, c.runLoad(ctx, args)
	case "copy":
		return false, c.runCopy(args)
	case "close":
		return false, c.runClose()
	case "back":
		c.unmount()
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %q, type 'help'", command)
	}
}

func (c *Cli) printHelp() {
	c.io.Println("Session:")
	c.io.Println("  login [username]          Login (password from ESPS_PASSWORD, password file or prompt)")
	c.io.Println("  logout                    Logout and forget the session")
	c.io.Println("  whoami                    Show the current profile")
	c.io.Println("  status                    Show session and refresh status")
	c.io.Println("  menu                      Show the navigation menu for your roles")
	c.io.Println()
	c.io.Println("Certificates:")
	c.io.Println("  open <incoming|outgoing>  Open a certificate view (refreshes every poll interval)")
	c.io.Println("  tab <source>              Switch table (ecertin, ephytoin, eahout, ephytoout)")
	c.io.Println("  table                     Print the current page of the table")
	c.io.Println("  refresh                   Reload all tables now")
	c.io.Println("  search <text>             Filter by text in any field (empty clears)")
	c.io.Println("  range <from> <to>|clear   Filter by certificate date, YYYY-MM-DD, inclusive")
	c.io.Println("  facet <upt>|clear         Filter outgoing tables by UPT")
	c.io.Println("  facets                    List UPT values of the current table")
	c.io.Println("  clear                     Reset all filters of the current table")
	c.io.Println("  page <n>, pagesize <n>    Paging (page size 5, 10 or 20)")
	c.io.Println("  back                      Close the view")
	c.io.Println()
	c.io.Println("Details:")
	c.io.Println("  show <key>                Open the record with this row key")
	c.io.Println("  load <xml|xmlsigned>      Load a document of the open record")
	c.io.Println("  copy <xml|xmlsigned>      Copy a loaded document to the clipboard")
	c.io.Println("  close                     Close the record")
	c.io.Println()
	c.io.Println("  help, quit")
}
