package extraction

// Instruction templates are versioned: bump the leading marker whenever the
// wording or the output schema changes, so logged responses can be traced
// back to the exact instructions that produced them.

const productExtractionPrompt = `[artaudit/extract-products v2]
You are a retail quality-control analyst reviewing a marketing-art image
(a promotional flyer, banner or social-media post) for a retailer.

Identify every distinct product block visible in the image. For each one,
read:
1. The product code (SKU) printed near the product. Codes are short
   retailer-assigned identifiers, often alphanumeric with hyphens.
2. The price printed for that product, as a plain number without currency
   symbols. If no price is printed, use null.
3. A short (under 12 words) description of the product as advertised.

Rules:
- Only report codes that are actually printed in the image. Never invent
  or complete partial codes.
- Report each product block separately even if codes repeat.
- Prices are the customer-facing sale price, not crossed-out old prices.

OUTPUT FORMAT:
Respond with ONLY a JSON object in exactly this shape, no other fields:

{
  "products": [
    {"code": "ABC-123", "price": 199.99, "description": "cordless drill 20V"}
  ]
}

If no product codes are visible, respond with {"products": []}.`

const spellingAuditPrompt = `[artaudit/spelling-audit v1]
You are a proofreader for retail marketing art. Review ALL text visible in
this image for spelling mistakes, missing or wrong accent marks, and
obvious typos. Ignore product codes, prices, URLs and brand names in
stylized logos.

OUTPUT FORMAT:
Respond with ONLY a JSON object in exactly this shape, no other fields:

{
  "has_errors": true,
  "corrections": [
    {"original": "promocão", "suggestion": "promoção", "context": "header banner"}
  ]
}

If every word is spelled correctly, respond with
{"has_errors": false, "corrections": []}.`

const catalogLookupPrompt = `[artaudit/catalog-lookup v3]
Search the retailer's live web catalog for the product with code %q.
Also try the code without hyphens: %q. Use web search to find the
product's current page.

OUTPUT FORMAT:
Respond with ONLY a JSON object in exactly this shape, no other fields:

{
  "found": true,
  "title": "product page title",
  "current_price": "$199.99",
  "previous_price": "$249.99",
  "url": "https://...",
  "image_url": "https://...",
  "code_suggestion": null
}

- "current_price" is the price currently shown on the product page,
  currency-formatted with a decimal point (e.g. "$199.99").
- "previous_price" is the crossed-out / "de" price when present, else null.
- When the code is not in the catalog, set "found" to false and, if a very
  similar code exists (one digit off, transposed characters), put it in
  "code_suggestion", otherwise null.`
