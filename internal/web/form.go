package web

const formHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Calcutta Auction Valuation</title></head>
<body>
<h1>Calcutta Auction Valuation</h1>
{{if .Error}}<p style="color:#c00">{{.Error}}</p>{{end}}

<h2>Before or During Auction</h2>
<h3>Download New Workbook</h3>
<form method="post" action="/refresh" enctype="multipart/form-data">
  <label>Password <input type="password" name="password" required></label><br>
  <label>Export from auction site <input type="file" name="bids" accept=".xlsx" required></label><br>
  <button type="submit">Download Pre-Auction Workbook</button>
</form>

<hr>
<h2>Updates After Auction</h2>
<h3>Update Best Odds tab</h3>
<form method="post" action="/best-odds" enctype="multipart/form-data">
  <label>Password <input type="password" name="password" required></label><br>
  <label>In-progress workbook <input type="file" name="workbook" accept=".xlsx" required></label><br>
  <button type="submit">Fetch Latest Odds</button>
</form>
</body>
</html>
`
