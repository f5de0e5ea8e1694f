package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"github.com/stratadb/strata/catalog"
	"github.com/stratadb/strata/engine"
	"github.com/stratadb/strata/storage"
	"github.com/stratadb/strata/util"
)

var dataRoot string

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "strata table inspection and maintenance",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func bailf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// openEngine builds an engine over the data root's object directory and
// sqlite catalog. The returned closer releases both.
func openEngine() (*engine.Engine, func()) {
	if err := util.EnsureDirectoryExists(dataRoot); err != nil {
		bailf("error preparing data root: %s", err)
	}
	db, err := sql.Open("sqlite3", filepath.Join(dataRoot, "catalog.db"))
	if err != nil {
		bailf("error opening catalog: %s", err)
	}
	cat, err := catalog.NewSQLCatalog(db)
	if err != nil {
		bailf("error initializing catalog: %s", err)
	}
	store := storage.NewDirectoryStore(filepath.Join(dataRoot, "objects"))
	e, err := engine.New(store, cat)
	if err != nil {
		bailf("error starting engine: %s", err)
	}
	return e, func() {
		e.Close()
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "error closing catalog: %s\n", err)
		}
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dataRoot, "root", "", "strata-data", "Data root directory")
}
