package sync

import (
	"context"
	"encoding/json"
	"net/url"
	"sort"
	"strings"

	"github.com/quarterfold/suppliersync/internal/domain"
	"github.com/quarterfold/suppliersync/internal/notify"
	"github.com/quarterfold/suppliersync/internal/state"
)

// variantImage is the JSON shape stored on a downstream variant.
type variantImage struct {
	Src string `json:"src"`
}

// CleanImageURL normalizes an image URL for comparison: host lowercased,
// query and fragment stripped. Unparseable input comes back unchanged.
func CleanImageURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// IsValidImageURL reports whether s is an absolute http(s) URL.
func IsValidImageURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// syncImages reconciles the downstream image state for one canonical
// product: the comma-joined product image list, each variant's single image
// object, and (on merchant-api) the vendor-images shadow. Any detected
// difference rewrites everything and notifies the integration queue once.
func (p *Propagator) syncImages(ctx context.Context, sp domain.SuppliedProduct, supplier domain.Supplier) error {
	if !supplier.Config.CatalogSyncImages {
		return nil
	}

	ip, ok, err := p.store.FindImportedProduct(ctx, supplier.ID, sp.ProductID, false)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	incomingImgSrcList := joinImageURLs(sp.Images)
	productImagesChanged := incomingImgSrcList != ip.Image

	variantImagesChanged := !equalImageLists(
		canonicalVariantImageList(sp.Variants),
		importedVariantImageList(ip.Variants),
	)

	if !productImagesChanged && !variantImagesChanged {
		return nil
	}

	upd := state.ImportedProductUpdate{Image: &incomingImgSrcList}
	if p.platform == domain.PlatformMerchantAPI {
		shadow, err := json.Marshal(sp.Images)
		if err != nil {
			return err
		}
		s := string(shadow)
		upd.VendorImages = &s
	}
	if err := p.store.UpdateImportedProduct(ctx, ip.ID, upd); err != nil {
		return err
	}

	variantImageMap := make(map[string]string)

	for _, iv := range ip.Variants {
		sv := findCanonicalVariant(sp.Variants, iv.VendorVariantID)
		if sv == nil {
			continue
		}

		imageJSON := ""
		imageSrc := ""
		if len(sv.Images) > 0 {
			first := sv.Images[0]
			// An image a variant points at must still exist in the product's
			// own list; an orphaned reference is dropped, not propagated.
			if first.URL != "" && productHasImageURL(sp.Images, first.URL) {
				b, err := json.Marshal(variantImage{Src: first.URL})
				if err != nil {
					return err
				}
				imageJSON = string(b)
				imageSrc = first.URL
			}
		}

		img := imageJSON
		if err := p.store.UpdateImportedVariant(ctx, iv.ID, state.ImportedVariantUpdate{Image: &img}); err != nil {
			return err
		}

		if imageJSON != "" && iv.ExternalID != "" && imageSrc != "" && IsValidImageURL(imageSrc) {
			variantImageMap[iv.ExternalID] = imageSrc
		}
	}

	if ip.ExternalID != "" {
		p.dispatcher.SendProductImages([]notify.ProductImageSyncItem{{
			VariantImageMap: variantImageMap,
			ProductID:       ip.ExternalID,
			Images:          incomingImgSrcList,
		}}, supplier.ID)
	}

	return nil
}

func joinImageURLs(images []domain.Image) string {
	urls := make([]string, 0, len(images))
	for _, img := range images {
		urls = append(urls, img.URL)
	}
	return strings.Join(urls, ",")
}

func productHasImageURL(images []domain.Image, u string) bool {
	for _, img := range images {
		if img.URL == u {
			return true
		}
	}
	return false
}

// canonicalVariantImageList returns each variant's normalized first-image
// URL ordered by variantKey, empty string standing in for "no image".
func canonicalVariantImageList(variants []domain.SuppliedVariant) []string {
	sorted := append([]domain.SuppliedVariant(nil), variants...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].VariantID < sorted[j].VariantID })

	out := make([]string, 0, len(sorted))
	for _, v := range sorted {
		if len(v.Images) == 0 || v.Images[0].URL == "" {
			out = append(out, "")
			continue
		}
		out = append(out, CleanImageURL(v.Images[0].URL))
	}
	return out
}

func importedVariantImageList(variants []domain.ImportedVariant) []string {
	sorted := append([]domain.ImportedVariant(nil), variants...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].VendorVariantID < sorted[j].VendorVariantID })

	out := make([]string, 0, len(sorted))
	for _, v := range sorted {
		var img variantImage
		if v.Image == "" || json.Unmarshal([]byte(v.Image), &img) != nil || img.Src == "" {
			out = append(out, "")
			continue
		}
		out = append(out, CleanImageURL(img.Src))
	}
	return out
}

func equalImageLists(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func findCanonicalVariant(variants []domain.SuppliedVariant, vendorVariantID string) *domain.SuppliedVariant {
	for i := range variants {
		if variants[i].VariantID == vendorVariantID {
			return &variants[i]
		}
	}
	return nil
}
