package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ternarybob/marketlens/internal/models"
)

var customersCmd = &cobra.Command{
	Use:   "customers",
	Short: "Manage customer profiles used by the customer analysis",
}

var customerAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a customer profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runCustomerAdd,
}

var customerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List customer profiles",
	Args:  cobra.NoArgs,
	RunE:  runCustomerList,
}

var customerRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a customer profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runCustomerRemove,
}

var customerFlags models.Customer

func init() {
	flags := customerAddCmd.Flags()
	flags.StringVar(&customerFlags.Equipment, "equipment", "", "Production equipment")
	flags.StringVar(&customerFlags.Capacity, "capacity", "", "Production capacity")
	flags.StringVar(&customerFlags.RawMaterials, "raw-materials", "", "Main raw materials")
	flags.StringVar(&customerFlags.Products, "products", "", "Main products")
	flags.Float64Var(&customerFlags.GrossMargin, "gross-margin", 0, "Gross margin in percent")

	customersCmd.AddCommand(customerAddCmd, customerListCmd, customerRemoveCmd)
}

func runCustomerAdd(cmd *cobra.Command, args []string) error {
	application, err := openApp()
	if err != nil {
		return err
	}
	defer application.Close()

	customer := customerFlags
	customer.Name = args[0]
	created, err := application.Customers.Add(cmd.Context(), customer)
	if err != nil {
		return err
	}
	fmt.Printf("added %s  %s\n", created.ID, created.Name)
	return nil
}

func runCustomerList(cmd *cobra.Command, args []string) error {
	application, err := openApp()
	if err != nil {
		return err
	}
	defer application.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Products", "Raw Materials", "Gross Margin"})
	for _, customer := range application.Customers.List() {
		table.Append([]string{
			customer.ID,
			customer.Name,
			customer.Products,
			customer.RawMaterials,
			strconv.FormatFloat(customer.GrossMargin, 'f', -1, 64) + "%",
		})
	}
	table.Render()
	return nil
}

func runCustomerRemove(cmd *cobra.Command, args []string) error {
	application, err := openApp()
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.Customers.Remove(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("removed %s\n", args[0])
	return nil
}
