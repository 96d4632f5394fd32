package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"productdash/internal/forms"
	"productdash/internal/models"
	"productdash/internal/notify"
	"productdash/internal/services"

	"github.com/spf13/cobra"
)

func newProductsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Manage the product catalog",
	}
	cmd.AddCommand(
		newListCommand(e),
		newShowCommand(e),
		newAddCommand(e),
		newEditCommand(e),
		newDeleteCommand(e),
	)
	return cmd
}

// store builds a product store whose notifications go to the command's stderr.
// It fails when the backend or media URL is not configured.
func (e *env) store(cmd *cobra.Command) (*services.ProductStore, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	return services.NewProductStore(e.apiClient(), notify.NewWriterNotifier(cmd.ErrOrStderr()), e.logger), nil
}

func newListCommand(e *env) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products, optionally filtered by a search term",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := e.store(cmd)
			if err != nil {
				return err
			}
			if err := store.Refresh(cmd.Context()); err != nil {
				return err
			}

			products := store.Filter(search)
			if len(products) == 0 {
				if search != "" {
					fmt.Fprintln(cmd.OutOrStdout(), "No products match your search.")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "No products yet.")
				}
				return nil
			}
			return printProducts(cmd.OutOrStdout(), products, e.cfg.Dashboard.MediaURL)
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive filter on name or description")
	return cmd
}

func newShowCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <uuid>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := e.store(cmd)
			if err != nil {
				return err
			}
			product, err := store.Details(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printProduct(cmd.OutOrStdout(), *product, e.cfg.Dashboard.MediaURL)
		},
	}
}

func newAddCommand(e *env) *cobra.Command {
	var name, description, image string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := e.store(cmd)
			if err != nil {
				return err
			}

			buf := forms.NewAddBuffer()
			buf.SetName(name)
			buf.SetDescription(description)
			if image != "" {
				if err := selectImage(buf, image); err != nil {
					return err
				}
			}

			product, err := store.Add(cmd.Context(), buf)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), product.UUID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "product name")
	cmd.Flags().StringVar(&description, "description", "", "product description")
	cmd.Flags().StringVar(&image, "image", "", "path of an image file to upload")
	return cmd
}

func newEditCommand(e *env) *cobra.Command {
	var name, description, image string
	cmd := &cobra.Command{
		Use:   "edit <uuid>",
		Short: "Edit a product; flags left out keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := e.store(cmd)
			if err != nil {
				return err
			}
			current, err := store.Details(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			buf := forms.NewEditBuffer(*current)
			if cmd.Flags().Changed("name") {
				buf.SetName(name)
			}
			if cmd.Flags().Changed("description") {
				buf.SetDescription(description)
			}
			if image != "" {
				if err := selectImage(buf, image); err != nil {
					return err
				}
			}

			product, err := store.Edit(cmd.Context(), current.UUID, buf)
			if err != nil {
				return err
			}
			return printProduct(cmd.OutOrStdout(), *product, e.cfg.Dashboard.MediaURL)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new product name")
	cmd.Flags().StringVar(&description, "description", "", "new product description")
	cmd.Flags().StringVar(&image, "image", "", "path of a replacement image file")
	return cmd
}

func newDeleteCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <uuid>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := e.store(cmd)
			if err != nil {
				return err
			}
			return store.Remove(cmd.Context(), args[0])
		},
	}
}

func selectImage(buf *forms.Buffer, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	buf.SelectFile(filepath.Base(path), content)
	return nil
}

func printProducts(w io.Writer, products []models.Product, mediaURL string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "UUID\tNAME\tDESCRIPTION\tIMAGE")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.UUID, p.Name, p.Description, p.ImageURL(mediaURL))
	}
	return tw.Flush()
}

func printProduct(w io.Writer, p models.Product, mediaURL string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "UUID:\t%s\n", p.UUID)
	fmt.Fprintf(tw, "Name:\t%s\n", p.Name)
	fmt.Fprintf(tw, "Description:\t%s\n", p.Description)
	fmt.Fprintf(tw, "Image:\t%s\n", p.ImageURL(mediaURL))
	fmt.Fprintf(tw, "Created:\t%s\n", p.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(tw, "Updated:\t%s\n", p.UpdatedAt.Format("2006-01-02 15:04:05"))
	return tw.Flush()
}
